package feedsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"selfAPI/internal/store"
)

var ErrMissingCredentials = errors.New("missing credentials")

const (
	StatusSynced  = "synced"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Item is one remote record mapped to an upsert. Err is set instead of Op
// when the record could not be mapped.
type Item struct {
	Ref string
	Op  store.UpsertOp
	Err error
}

type Source interface {
	Name() string
	Collection() string
	// Ready returns an error wrapping ErrMissingCredentials when the
	// source is not configured.
	Ready() error
	Fetch(ctx context.Context) ([]Item, error)
}

type ItemError struct {
	Ref     string `json:"ref"`
	Message string `json:"message"`
}

type Result struct {
	Source        string      `json:"source"`
	Collection    string      `json:"collection"`
	UpsertedCount int         `json:"upsertedCount"`
	MatchedCount  int         `json:"matchedCount"`
	Errors        []ItemError `json:"errors"`
	Skipped       bool        `json:"skipped"`
	SkipReason    string      `json:"skipReason,omitempty"`
	Failed        bool        `json:"failed"`
	FailureReason string      `json:"failureReason,omitempty"`
	DurationMs    int64       `json:"durationMs"`
}

func (r *Result) Status() string {
	switch {
	case r.Skipped:
		return StatusSkipped
	case r.Failed:
		return StatusFailed
	default:
		return StatusSynced
	}
}

// Wrote reports whether the run touched the store.
func (r *Result) Wrote() bool {
	return r.UpsertedCount+r.MatchedCount > 0
}

type Notifier interface {
	Notify(ctx context.Context, title, body string, data map[string]string) error
}

type Syncer struct {
	store    store.Store
	logger   zerolog.Logger
	notifier Notifier
	registry prometheus.Registerer

	runs  *prometheus.CounterVec
	items *prometheus.CounterVec
}

type Option func(*Syncer)

func WithNotifier(n Notifier) Option {
	return func(s *Syncer) { s.notifier = n }
}

// WithRegisterer registers the sync metrics on reg. Without it the metrics
// are still counted but not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Syncer) { s.registry = reg }
}

func NewSyncer(st store.Store, logger zerolog.Logger, opts ...Option) *Syncer {
	s := &Syncer{
		store:  st,
		logger: logger.With().Str("component", "feedsync").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	factory := promauto.With(s.registry)
	s.runs = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "selfapi_sync_runs_total",
		Help: "Sync runs by source and outcome",
	}, []string{"source", "outcome"})
	s.items = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "selfapi_sync_items_total",
		Help: "Synced items by source and result",
	}, []string{"source", "result"})

	return s
}

// Run performs one sync of src. It never returns an error: a missing
// credential skips the run and a fetch or store failure is reported in the
// result, so callers can keep serving what is already stored.
func (s *Syncer) Run(ctx context.Context, src Source) *Result {
	start := time.Now()
	res := &Result{Source: src.Name(), Collection: src.Collection(), Errors: []ItemError{}}
	log := s.logger.With().Str("source", src.Name()).Logger()

	defer func() {
		res.DurationMs = time.Since(start).Milliseconds()
		s.runs.WithLabelValues(src.Name(), res.Status()).Inc()
	}()

	if err := src.Ready(); err != nil {
		res.Skipped = true
		res.SkipReason = err.Error()
		log.Warn().Str("reason", res.SkipReason).Msg("sync skipped")
		return res
	}

	items, err := src.Fetch(ctx)
	if err != nil {
		s.fail(ctx, log, res, fmt.Errorf("fetch failed: %w", err))
		return res
	}

	ops := make([]store.UpsertOp, 0, len(items))
	for _, item := range items {
		if item.Err != nil {
			log.Warn().Str("ref", item.Ref).Err(item.Err).Msg("skipping unmappable item")
			res.Errors = append(res.Errors, ItemError{Ref: item.Ref, Message: item.Err.Error()})
			continue
		}
		ops = append(ops, item.Op)
	}

	if len(ops) > 0 {
		bulk, err := s.store.BulkUpsert(ctx, src.Collection(), ops)
		if err != nil {
			s.fail(ctx, log, res, fmt.Errorf("upsert failed: %w", err))
			return res
		}

		res.UpsertedCount = bulk.Inserted
		res.MatchedCount = bulk.Matched
		for _, f := range bulk.Failed {
			log.Warn().Str("ref", f.ExternalID).Str("error", f.Message).Msg("item upsert failed")
			res.Errors = append(res.Errors, ItemError{Ref: f.ExternalID, Message: f.Message})
		}
	}

	s.items.WithLabelValues(src.Name(), "inserted").Add(float64(res.UpsertedCount))
	s.items.WithLabelValues(src.Name(), "matched").Add(float64(res.MatchedCount))
	s.items.WithLabelValues(src.Name(), "error").Add(float64(len(res.Errors)))

	log.Info().
		Int("fetched", len(items)).
		Int("upserted", res.UpsertedCount).
		Int("matched", res.MatchedCount).
		Int("errors", len(res.Errors)).
		Msg("sync finished")

	if len(res.Errors) > 0 {
		s.notify(ctx, log, fmt.Sprintf("%s sync finished with %d errors", src.Name(), len(res.Errors)), res.Errors[0].Message, res)
	}

	return res
}

func (s *Syncer) fail(ctx context.Context, log zerolog.Logger, res *Result, err error) {
	res.Failed = true
	res.FailureReason = err.Error()
	log.Error().Err(err).Msg("sync failed")
	s.notify(ctx, log, fmt.Sprintf("%s sync failed", res.Source), res.FailureReason, res)
}

func (s *Syncer) notify(ctx context.Context, log zerolog.Logger, title, body string, res *Result) {
	if s.notifier == nil {
		return
	}

	data := map[string]string{
		"source":   res.Source,
		"status":   res.Status(),
		"upserted": fmt.Sprint(res.UpsertedCount),
		"matched":  fmt.Sprint(res.MatchedCount),
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), title, body, data); err != nil {
		log.Warn().Err(err).Msg("failed to send sync notification")
	}
}
