package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/cardrelay/cardrelay/internal/api/validate"
	"github.com/cardrelay/cardrelay/internal/cache"
	"github.com/cardrelay/cardrelay/internal/events"
	"github.com/cardrelay/cardrelay/internal/metrics"
	"github.com/cardrelay/cardrelay/internal/models"
	"github.com/cardrelay/cardrelay/internal/provider"
	repo "github.com/cardrelay/cardrelay/internal/repository"
	"github.com/cardrelay/cardrelay/internal/worker"
)

// ErrProviderUnavailable marks an outbound charging call that did not
// complete. The pending record is kept: the card may or may not have
// been charged, and only a later callback or manual reconciliation can
// tell.
var ErrProviderUnavailable = errors.New("provider unavailable")

type Charger interface {
	Charge(ctx context.Context, r provider.ChargeRequest) error
}

type EventPublisher interface {
	PublishReconciled(ctx context.Context, e events.Reconciled) error
}

type StatusCache interface {
	Get(ctx context.Context, requestID string) (cache.Entry, bool)
	Set(ctx context.Context, requestID string, e cache.Entry) error
}

type RedemptionService struct {
	red            repo.Redemptions
	log            repo.AuditLogs
	prov           Charger
	pub            EventPublisher // nil when no broker is configured
	cache          StatusCache    // nil when no redis is configured
	wp             *worker.Pool
	notFoundStatus string
}

func NewRedemptionService(r repo.Redemptions, l repo.AuditLogs, p Charger, pub EventPublisher, c StatusCache, wp *worker.Pool, notFoundStatus string) *RedemptionService {
	return &RedemptionService{red: r, log: l, prov: p, pub: pub, cache: c, wp: wp, notFoundStatus: notFoundStatus}
}

// ----------------- Submit -----------------

type SubmitInput struct {
	Telco    string
	Amount   int64
	Serial   string
	Pin      string
	Username string
}

// Submit persists a pending redemption and forwards the card to the
// provider. The record is written first: the provider's callback can
// arrive before our outbound call returns, and it must find something
// to reconcile against.
func (s *RedemptionService) Submit(ctx context.Context, in SubmitInput) (models.Redemption, error) {
	var errs validate.Errs
	for _, e := range []*validate.ErrField{
		validate.Required("type", in.Telco),
		validate.Required("serial", in.Serial),
		validate.Required("pin", in.Pin),
		validate.MinInt("amount", in.Amount, 1),
	} {
		if e != nil {
			errs = append(errs, *e)
		}
	}
	if len(errs) > 0 {
		return models.Redemption{}, errs
	}

	red := models.Redemption{
		RequestID:      uuid.NewString(),
		Username:       in.Username,
		Telco:          in.Telco,
		DeclaredAmount: in.Amount,
		Serial:         in.Serial,
		Pin:            in.Pin,
		Status:         models.RedemptionPending,
	}
	red, err := s.red.Create(ctx, red)
	if err != nil {
		return models.Redemption{}, fmt.Errorf("create redemption: %w", err)
	}
	metrics.RedemptionsTotal.WithLabelValues(red.Telco).Inc()
	s.audit(red.RequestID, "created", map[string]any{
		"telco":  red.Telco,
		"amount": red.DeclaredAmount,
		"serial": mask(red.Serial),
	})

	err = s.prov.Charge(ctx, provider.ChargeRequest{
		Telco:     red.Telco,
		Pin:       red.Pin,
		Serial:    red.Serial,
		Amount:    red.DeclaredAmount,
		RequestID: red.RequestID,
	})
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("error").Inc()
		slog.Warn("provider charge failed, record left pending",
			"request_id", red.RequestID, "err", err)
		return red, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	metrics.ProviderRequestsTotal.WithLabelValues("ok").Inc()
	slog.Info("card forwarded", "request_id", red.RequestID, "telco", red.Telco, "serial", mask(red.Serial))
	return red, nil
}

// ----------------- Reconcile -----------------

type CallbackInput struct {
	Status    int
	RequestID string
	Value     int64
}

// Reconcile applies a provider callback. Provider status codes:
// 1 full-value success, 2 success at a provider-corrected value,
// 3/4/100 invalid card. Anything else is not a verdict yet and leaves
// the record pending.
func (s *RedemptionService) Reconcile(ctx context.Context, in CallbackInput) error {
	red, err := s.red.GetByRequestID(ctx, in.RequestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// not ours, or long gone; ack so the provider stops retrying
			metrics.CallbacksTotal.WithLabelValues("unknown_id").Inc()
			slog.Warn("callback for unknown request", "request_id", in.RequestID, "provider_status", in.Status)
			s.audit(in.RequestID, "unknown_callback", map[string]any{"provider_status": in.Status, "value": in.Value})
			return nil
		}
		return fmt.Errorf("lookup redemption: %w", err)
	}

	var newStatus models.RedemptionStatus
	confirmed := red.ConfirmedAmount
	switch in.Status {
	case 1, 2:
		newStatus = models.RedemptionSuccess
		confirmed = in.Value
	case 3, 4, 100:
		newStatus = models.RedemptionWrong
	default:
		metrics.CallbacksTotal.WithLabelValues("ignored").Inc()
		slog.Info("unrecognized provider status, record unchanged",
			"request_id", red.RequestID, "provider_status", in.Status)
		s.audit(red.RequestID, "callback_ignored", map[string]any{"provider_status": in.Status, "value": in.Value})
		return nil
	}

	if red.Status == newStatus && red.ConfirmedAmount == confirmed {
		// re-delivery of an already applied verdict
		metrics.CallbacksTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	if err := s.red.SetResult(ctx, red.RequestID, newStatus, confirmed); err != nil {
		return fmt.Errorf("apply callback: %w", err)
	}
	metrics.CallbacksTotal.WithLabelValues(string(newStatus)).Inc()
	slog.Info("redemption reconciled",
		"request_id", red.RequestID, "status", newStatus, "confirmed_amount", confirmed)

	amount := confirmed
	if amount <= 0 {
		amount = red.DeclaredAmount
	}
	s.cacheSet(ctx, red.RequestID, cache.Entry{Status: string(newStatus), Amount: amount})

	requestID := red.RequestID
	s.audit(requestID, "status_change", map[string]any{
		"from": string(red.Status), "to": string(newStatus), "confirmed_amount": confirmed,
	})
	if s.pub != nil {
		evt := events.Reconciled{RequestID: requestID, Status: string(newStatus), ConfirmedAmount: confirmed}
		s.wp.Submit(func() {
			if err := s.pub.PublishReconciled(context.Background(), evt); err != nil {
				slog.Error("publish reconciled", "request_id", requestID, "err", err)
			}
		})
	}
	return nil
}

// ----------------- Check -----------------

type CheckResult struct {
	Status string
	Amount int64
}

// Check is the read-only projection for client polling. A missing
// record is reported with the configured non-terminal status; the
// client cannot distinguish "never existed" from "still pending".
func (s *RedemptionService) Check(ctx context.Context, requestID string) (CheckResult, error) {
	if s.cache != nil {
		if e, ok := s.cache.Get(ctx, requestID); ok {
			return CheckResult{Status: e.Status, Amount: e.Amount}, nil
		}
	}

	red, err := s.red.GetByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CheckResult{Status: s.notFoundStatus}, nil
		}
		return CheckResult{}, fmt.Errorf("lookup redemption: %w", err)
	}

	res := CheckResult{Status: string(red.Status), Amount: red.DisplayAmount()}
	if red.Status.Terminal() {
		s.cacheSet(ctx, requestID, cache.Entry{Status: res.Status, Amount: res.Amount})
	}
	return res, nil
}

// ----------------- Helpers -----------------

func (s *RedemptionService) cacheSet(ctx context.Context, requestID string, e cache.Entry) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, requestID, e); err != nil {
		slog.Warn("status cache set", "request_id", requestID, "err", err)
	}
}

func (s *RedemptionService) audit(requestID, action string, details map[string]any) {
	id := requestID
	s.wp.Submit(func() {
		if err := s.log.Create(context.Background(), models.AuditLog{
			EntityType: "redemption",
			EntityID:   &id,
			Action:     action,
			Details:    details,
		}); err != nil {
			slog.Warn("audit write", "request_id", id, "action", action, "err", err)
		}
	})
}

// mask keeps the first and last two characters of a card secret so audit
// trails stay correlatable without storing the credential in cleartext.
func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
