// Package stats computes the administrator dashboard counters.
package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// Metric names one dashboard counter.
type Metric string

const (
	UsersTotal               Metric = "users_total"
	UsersPending             Metric = "users_pending_verification"
	UsersActive              Metric = "users_active"
	UsersSuspended           Metric = "users_suspended"
	PropertiesTotal          Metric = "properties_total"
	PropertiesPending        Metric = "properties_pending_approval"
	PropertiesApproved       Metric = "properties_approved"
	PropertiesRejected       Metric = "properties_rejected"
	PropertiesUnavailable    Metric = "properties_unavailable"
	PropertiesRevision       Metric = "properties_revision_requested"
	PropertiesFeatured       Metric = "properties_featured"
	InquiriesTotal           Metric = "inquiries_total"
	InquiriesNew             Metric = "inquiries_new"
	AuditEventsLast24h       Metric = "audit_events_24h"
)

// maxParallelCounts bounds the count queries in flight for one summary.
const maxParallelCounts = 4

// Metrics lists every counter of the dashboard.
var Metrics = []Metric{
	UsersTotal, UsersPending, UsersActive, UsersSuspended,
	PropertiesTotal, PropertiesPending, PropertiesApproved, PropertiesRejected,
	PropertiesUnavailable, PropertiesRevision, PropertiesFeatured,
	InquiriesTotal, InquiriesNew, AuditEventsLast24h,
}

// Counter evaluates one metric.
type Counter interface {
	Count(ctx context.Context, m Metric, now time.Time) (int64, error)
}

// Summary is the dashboard payload.
type Summary struct {
	Users struct {
		Total               int64 `json:"total"`
		PendingVerification int64 `json:"pendingVerification"`
		Active              int64 `json:"active"`
		Suspended           int64 `json:"suspended"`
	} `json:"users"`
	Properties struct {
		Total             int64 `json:"total"`
		PendingApproval   int64 `json:"pendingApproval"`
		Approved          int64 `json:"approved"`
		Rejected          int64 `json:"rejected"`
		Unavailable       int64 `json:"unavailable"`
		RevisionRequested int64 `json:"revisionRequested"`
		Featured          int64 `json:"featured"`
	} `json:"properties"`
	Inquiries struct {
		Total int64 `json:"total"`
		New   int64 `json:"new"`
	} `json:"inquiries"`
	AuditEventsLast24h int64     `json:"auditEventsLast24h"`
	GeneratedAt        time.Time `json:"generatedAt"`
}

func summarize(counts map[Metric]int64, at time.Time) Summary {
	var s Summary
	s.Users.Total = counts[UsersTotal]
	s.Users.PendingVerification = counts[UsersPending]
	s.Users.Active = counts[UsersActive]
	s.Users.Suspended = counts[UsersSuspended]
	s.Properties.Total = counts[PropertiesTotal]
	s.Properties.PendingApproval = counts[PropertiesPending]
	s.Properties.Approved = counts[PropertiesApproved]
	s.Properties.Rejected = counts[PropertiesRejected]
	s.Properties.Unavailable = counts[PropertiesUnavailable]
	s.Properties.RevisionRequested = counts[PropertiesRevision]
	s.Properties.Featured = counts[PropertiesFeatured]
	s.Inquiries.Total = counts[InquiriesTotal]
	s.Inquiries.New = counts[InquiriesNew]
	s.AuditEventsLast24h = counts[AuditEventsLast24h]
	s.GeneratedAt = at
	return s
}

// Service serves cached dashboard counters. Concurrent misses share one computation.
type Service struct {
	counter Counter
	cache   *Cache
	group   singleflight.Group
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service instance. cache may be nil.
func NewService(counter Counter, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cache != nil {
		cache.logger = logger
	}
	return &Service{counter: counter, cache: cache, logger: logger, now: time.Now}
}

// Summary returns the dashboard counters.
func (s *Service) Summary(ctx context.Context, actor shared.Identity) (Summary, error) {
	if err := rbac.Administer.Check(actor); err != nil {
		return Summary{}, err
	}
	key, err := s.cache.BuildKey(ctx, "stats", "summary")
	if err != nil {
		s.logger.Warn("stats cache unavailable", slog.Any("error", err))
		return s.compute(ctx)
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		var out Summary
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return s.compute(ctx)
		})
		return out, err
	})
	if err != nil {
		return Summary{}, err
	}
	return v.(Summary), nil
}

// Invalidate drops cached counters after a mutation.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("stats cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) compute(ctx context.Context) (Summary, error) {
	now := s.now().UTC()
	var (
		mu     sync.Mutex
		counts = make(map[Metric]int64, len(Metrics))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelCounts)
	for _, m := range Metrics {
		g.Go(func() error {
			n, err := s.counter.Count(gctx, m, now)
			if err != nil {
				return err
			}
			mu.Lock()
			counts[m] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summarize(counts, now), nil
}
