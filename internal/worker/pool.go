package worker

import (
	"sync"

	"github.com/cardrelay/cardrelay/internal/metrics"
)

type task func()

// Pool runs post-commit work (audit writes, event publishing) off the
// request path.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan task
}

func NewPool(n int) *Pool {
	p := &Pool{jobs: make(chan task, 1024)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
				metrics.WorkerQueueDepth.Dec()
			}
		}()
	}
	return p
}

func (p *Pool) Submit(f task) {
	metrics.WorkerQueueDepth.Inc()
	p.jobs <- f
}

// Stop closes the queue and waits for in-flight jobs to drain.
func (p *Pool) Stop() { close(p.jobs); p.wg.Wait() }
