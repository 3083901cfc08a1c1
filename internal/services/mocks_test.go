package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cardrelay/cardrelay/internal/cache"
	"github.com/cardrelay/cardrelay/internal/events"
	"github.com/cardrelay/cardrelay/internal/models"
	"github.com/cardrelay/cardrelay/internal/provider"
	repo "github.com/cardrelay/cardrelay/internal/repository"
	"github.com/cardrelay/cardrelay/internal/worker"
)

type fakeRedemptions struct {
	mu         sync.Mutex
	records    map[string]models.Redemption
	failCreate bool
	failGet    bool
	failSet    bool
}

func newFakeRedemptions() *fakeRedemptions {
	return &fakeRedemptions{records: map[string]models.Redemption{}}
}

func (f *fakeRedemptions) Create(_ context.Context, r models.Redemption) (models.Redemption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return models.Redemption{}, errors.New("store down")
	}
	if _, ok := f.records[r.RequestID]; ok {
		return models.Redemption{}, errors.New("duplicate request_id")
	}
	r.CreatedAt = time.Now()
	f.records[r.RequestID] = r
	return r, nil
}

func (f *fakeRedemptions) GetByRequestID(_ context.Context, requestID string) (models.Redemption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return models.Redemption{}, errors.New("store down")
	}
	r, ok := f.records[requestID]
	if !ok {
		return models.Redemption{}, repo.ErrNotFound
	}
	return r, nil
}

func (f *fakeRedemptions) SetResult(_ context.Context, requestID string, status models.RedemptionStatus, confirmedAmount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return errors.New("store down")
	}
	r, ok := f.records[requestID]
	if !ok {
		return repo.ErrNotFound
	}
	r.Status = status
	r.ConfirmedAmount = confirmedAmount
	f.records[requestID] = r
	return nil
}

func (f *fakeRedemptions) snapshot(requestID string) (models.Redemption, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[requestID]
	return r, ok
}

type fakeAuditLogs struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (f *fakeAuditLogs) Create(_ context.Context, l models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, l)
	return nil
}

func (f *fakeAuditLogs) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.logs))
	for _, l := range f.logs {
		out = append(out, l.Action)
	}
	return out
}

type fakeCharger struct {
	mu       sync.Mutex
	calls    []provider.ChargeRequest
	fail     bool
	onCharge func(provider.ChargeRequest)
}

func (f *fakeCharger) Charge(_ context.Context, r provider.ChargeRequest) error {
	f.mu.Lock()
	f.calls = append(f.calls, r)
	hook := f.onCharge
	fail := f.fail
	f.mu.Unlock()
	if hook != nil {
		hook(r)
	}
	if fail {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeCharger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Reconciled
}

func (f *fakePublisher) PublishReconciled(_ context.Context, e events.Reconciled) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) published() []events.Reconciled {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.Reconciled(nil), f.events...)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]cache.Entry
	failSet bool
}

func newFakeCache() *fakeCache { return &fakeCache{entries: map[string]cache.Entry{}} }

func (f *fakeCache) Get(_ context.Context, requestID string) (cache.Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[requestID]
	return e, ok
}

func (f *fakeCache) Set(_ context.Context, requestID string, e cache.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return errors.New("redis down")
	}
	f.entries[requestID] = e
	return nil
}

// fixture wires a service over the fakes. drain() must be called before
// asserting on audit logs or published events.
type fixture struct {
	reds  *fakeRedemptions
	audit *fakeAuditLogs
	chg   *fakeCharger
	pub   *fakePublisher
	cache *fakeCache
	wp    *worker.Pool
	svc   *RedemptionService
}

func newFixture() *fixture {
	f := &fixture{
		reds:  newFakeRedemptions(),
		audit: &fakeAuditLogs{},
		chg:   &fakeCharger{},
		pub:   &fakePublisher{},
		cache: newFakeCache(),
		wp:    worker.NewPool(2),
	}
	f.svc = NewRedemptionService(f.reds, f.audit, f.chg, f.pub, f.cache, f.wp, "not_found")
	return f
}

func (f *fixture) drain() { f.wp.Stop() }
