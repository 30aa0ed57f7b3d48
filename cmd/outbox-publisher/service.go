package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/pizzalemon/pos-backend/pkg/config"
	"github.com/pizzalemon/pos-backend/pkg/db/models"
	"github.com/pizzalemon/pos-backend/pkg/enums"
	"github.com/pizzalemon/pos-backend/pkg/logger"
	"github.com/pizzalemon/pos-backend/pkg/metrics"
	"github.com/pizzalemon/pos-backend/pkg/outbox"
	"github.com/pizzalemon/pos-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
	CountPending(tx *gorm.DB, maxAttempts int) (int64, error)
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// deliveryGuard remembers delivered events across publisher restarts.
type deliveryGuard interface {
	AlreadyPublished(ctx context.Context, publisher string, eventID uuid.UUID) (bool, error)
	MarkPublished(ctx context.Context, publisher string, eventID uuid.UUID) (bool, error)
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Sink          outbox.Sink
	Repository    outboxRepository
	Registry      registryResolver
	DLQRepository dlqRepository
	Metrics       *metrics.OutboxMetrics
	// Guard is optional; without it every fetched row is sent. Marks are
	// keyed by PublisherID, which defaults to the sink name so every replica
	// shares them.
	Guard       deliveryGuard
	PublisherID string
}

// Service drains sale, inventory and loyalty events from the outbox table
// into the configured sink.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	repo        outboxRepository
	sink        outbox.Sink
	sinkName    string
	registry    registryResolver
	dlq         dlqRepository
	metrics     *metrics.OutboxMetrics
	guard       deliveryGuard
	publisherID string

	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	required := []struct {
		name    string
		missing bool
	}{
		{"config", params.Config == nil},
		{"logger", params.Logger == nil},
		{"database client", params.DB == nil},
		{"outbox sink", params.Sink == nil},
		{"outbox repository", params.Repository == nil},
		{"event registry", params.Registry == nil},
		{"dlq repository", params.DLQRepository == nil},
	}
	for _, dep := range required {
		if dep.missing {
			return nil, fmt.Errorf("%s is required", dep.name)
		}
	}

	cfg := params.Config.Outbox
	svc := &Service{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		sink:        params.Sink,
		sinkName:    cfg.SinkName(),
		registry:    params.Registry,
		dlq:         params.DLQRepository,
		metrics:     params.Metrics,
		guard:       params.Guard,
		publisherID: params.PublisherID,
		batchSize:   positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts: positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		poll:        time.Duration(positiveOr(cfg.PollIntervalMS, int(defaultPoll/time.Millisecond))) * time.Millisecond,
	}
	if svc.publisherID == "" {
		svc.publisherID = svc.sinkName
	}
	return svc, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func (s *Service) checkReady(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{s.sinkName, s.sink.Ping},
	}
	for _, check := range checks {
		if err := check.ping(ctx); err != nil {
			s.logg.Error(ctx, check.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", check.name, err)
		}
	}
	return nil
}

// errorBackoff doubles from the poll interval up to maxBackoff after
// consecutive batch failures.
func errorBackoff(poll time.Duration) retry.Backoff {
	return retry.WithJitter(jitterWindow, retry.WithCappedDuration(maxBackoff, retry.NewExponential(poll)))
}

// idleWait spreads replicas polling an empty outbox.
func idleWait(poll time.Duration) retry.Backoff {
	return retry.WithJitter(jitterWindow, retry.NewConstant(poll))
}

// Run polls the outbox until ctx is canceled. A non-empty batch is followed
// immediately by the next fetch.
func (s *Service) Run(ctx context.Context) error {
	if err := s.checkReady(ctx); err != nil {
		return err
	}

	idle := idleWait(s.poll)
	failures := errorBackoff(s.poll)

	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher stopping")
			return err
		}

		var wait time.Duration
		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			wait, _ = failures.Next()
		case processed:
			failures = errorBackoff(s.poll)
			continue
		default:
			failures = errorBackoff(s.poll)
			s.samplePending(ctx)
			wait, _ = idle.Next()
		}

		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	var fetched int
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		fetched = len(events)
		for _, event := range events {
			if err := s.publishOne(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return fetched > 0, err
}

// samplePending refreshes the backlog gauge. Rows locked by another
// replica still count.
func (s *Service) samplePending(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	var pending int64
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		pending, err = s.repo.CountPending(tx, s.maxAttempts)
		return err
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "outbox pending count failed")
		return
	}
	s.metrics.SetPending(pending)
}

// publishOne returns an error only when bookkeeping fails; delivery
// failures are recorded on the row.
func (s *Service) publishOne(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonUnknownEvent, err, s.logFields(event, nil))
	}

	topic := resolved.Descriptor.Topic
	fields := s.logFields(event, resolved)

	if s.delivered(ctx, event.ID) {
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event already delivered")
		return s.markPublished(tx, event.ID)
	}

	sendErr := s.send(ctx, event, resolved)
	if sendErr == nil {
		s.remember(ctx, event.ID)
		if err := s.markPublished(tx, event.ID); err != nil {
			return err
		}
		s.metrics.IncPublished(topic)
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	s.metrics.IncFailure(topic)
	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt

	var permanent registry.NonRetryableError
	switch {
	case errors.As(sendErr, &permanent):
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, sendErr, fields)
	case attempt >= s.maxAttempts:
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", attempt, sendErr), fields)
	}

	s.logg.Warn(s.logg.WithFields(ctx, withError(fields, sendErr)), "outbox publish failed, will retry")
	if err := s.repo.MarkFailedTx(tx, event.ID, sendErr); err != nil {
		return fmt.Errorf("recording failed attempt for %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) send(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	if resolved.Descriptor.Topic == "" {
		return registry.NewNonRetryableError(fmt.Errorf("no topic configured for %s", event.EventType))
	}
	sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return s.sink.Publish(sendCtx, resolved.Message(event))
}

// delivered consults the guard. A guard outage counts as not delivered so
// the event is sent again rather than stranded.
func (s *Service) delivered(ctx context.Context, id uuid.UUID) bool {
	if s.guard == nil {
		return false
	}
	seen, err := s.guard.AlreadyPublished(ctx, s.publisherID, id)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "delivery guard lookup failed")
		return false
	}
	return seen
}

func (s *Service) remember(ctx context.Context, id uuid.UUID) {
	if s.guard == nil {
		return
	}
	if _, err := s.guard.MarkPublished(ctx, s.publisherID, id); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "delivery guard mark failed")
	}
}

func (s *Service) markPublished(tx *gorm.DB, id uuid.UUID) error {
	if err := s.repo.MarkPublishedTx(tx, id); err != nil {
		return fmt.Errorf("marking %s published: %w", id, err)
	}
	return nil
}

// deadLetter copies the event into the DLQ and retires the outbox row.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	s.logg.Warn(s.logg.WithFields(ctx, withError(fields, cause)), "outbox event dead-lettered")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("dead-lettering %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("retiring %s: %w", event.ID, err)
	}
	s.metrics.IncDeadLetter(string(reason))
	return nil
}

func (s *Service) logFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
		"sink":           s.sinkName,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	if resolved == nil {
		return fields
	}
	if resolved.Descriptor.Topic != "" {
		fields["topic"] = resolved.Descriptor.Topic
	}
	if env := resolved.Envelope; env.EventID != "" {
		fields["event_id"] = env.EventID
		fields["occurred_at"] = env.OccurredAt.Format(time.RFC3339Nano)
	}
	return fields
}

func withError(fields map[string]any, err error) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
