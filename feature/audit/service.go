package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	coreaudit "farm-agent/core/audit"
	"farm-agent/core/database"
	"farm-agent/core/poller"
	"farm-agent/core/reconcile"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// SourceStatus is the outcome of the last poll of one source.
type SourceStatus struct {
	Source   string               `json:"source"`
	Table    string               `json:"table"`
	LastPoll time.Time            `json:"last_poll"`
	Result   coreaudit.PollResult `json:"result"`
	Error    string               `json:"error,omitempty"`
}

// Service polls every discovered audit source.
type Service struct {
	db      *gorm.DB
	cfg     Config
	tracker *coreaudit.Tracker
	catalog *reconcile.Reconciler
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time

	sf           singleflight.Group
	mu           sync.RWMutex
	sources      []*DatabaseSource
	discoveredAt time.Time
	status       map[string]SourceStatus
}

// NewService creates the audit service. tracker and catalog must be loaded
// before the first poll.
func NewService(db *gorm.DB, cfg Config, tracker *coreaudit.Tracker, catalog *reconcile.Reconciler, timeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		db:      db,
		cfg:     cfg,
		tracker: tracker,
		catalog: catalog,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
		status:  make(map[string]SourceStatus),
	}
}

// Tracker returns the position tracker.
func (s *Service) Tracker() *coreaudit.Tracker {
	return s.tracker
}

// PollAll polls every source once and saves the positions. A source whose
// query fails is skipped until the next poll; any other failure stops the
// poll after saving what was delivered.
func (s *Service) PollAll(ctx context.Context) (coreaudit.PollResult, error) {
	v, err, _ := s.sf.Do("poll", func() (any, error) {
		return s.pollAll(ctx)
	})
	res, _ := v.(coreaudit.PollResult)
	return res, err
}

func (s *Service) pollAll(ctx context.Context) (coreaudit.PollResult, error) {
	var total coreaudit.PollResult
	start := time.Now()

	if err := s.Probe(ctx); err != nil {
		return total, err
	}

	sources, err := s.currentSources(ctx)
	if err != nil {
		return total, err
	}

	var pollErr error
	for _, src := range sources {
		res, err := s.tracker.Poll(ctx, src)
		total.Fetched += res.Fetched
		total.Delivered += res.Delivered
		total.Skipped += res.Skipped
		total.Errors += res.Errors
		s.record(src, res, err)

		if err == nil {
			continue
		}
		if ctx.Err() == nil && errors.Is(err, poller.ErrUnavailable) {
			s.logger.Warn("Audit source poll failed", zap.String("source", src.ID()), zap.Error(err))
			continue
		}
		pollErr = err
		break
	}

	if err := s.tracker.Save(ctx); err != nil {
		return total, errors.Join(pollErr, err)
	}
	if pollErr != nil {
		return total, pollErr
	}

	s.logger.Debug("Audit poll completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("sources", len(sources)),
		zap.Int("delivered", total.Delivered),
		zap.Int("errors", total.Errors),
		zap.Bool("unsaved", s.tracker.Dirty()),
	)
	return total, nil
}

func (s *Service) currentSources(ctx context.Context) ([]*DatabaseSource, error) {
	s.mu.RLock()
	sources, at := s.sources, s.discoveredAt
	s.mu.RUnlock()

	if !at.IsZero() && s.now().Sub(at) < s.cfg.DiscoveryInterval() {
		return sources, nil
	}

	sources, err := s.discover(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sources = sources
	s.discoveredAt = s.now()
	s.mu.Unlock()
	return sources, nil
}

func (s *Service) record(src *DatabaseSource, res coreaudit.PollResult, err error) {
	st := SourceStatus{Source: src.ID(), Table: src.Table(), LastPoll: s.now(), Result: res}
	if err != nil {
		st.Error = err.Error()
	}
	s.mu.Lock()
	s.status[src.ID()] = st
	s.mu.Unlock()
}

// Sources returns the status of every discovered source.
func (s *Service) Sources() []SourceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SourceStatus, 0, len(s.sources))
	for _, src := range s.sources {
		st, ok := s.status[src.ID()]
		if !ok {
			st = SourceStatus{Source: src.ID(), Table: src.Table()}
		}
		out = append(out, st)
	}
	return out
}

// Probe checks that the audit database answers.
func (s *Service) Probe(ctx context.Context) error {
	if err := database.Ping(ctx, s.db, s.timeout); err != nil {
		return poller.Unavailable(err)
	}
	return nil
}

// Reload reloads persisted positions and the source catalog, and forces the
// next poll to discover sources again.
func (s *Service) Reload(ctx context.Context) error {
	if err := s.tracker.Load(ctx); err != nil {
		return fmt.Errorf("failed to reload audit positions: %w", err)
	}
	if err := s.catalog.Cache().Load(ctx); err != nil {
		return fmt.Errorf("failed to reload audit sources: %w", err)
	}
	s.mu.Lock()
	s.sources = nil
	s.discoveredAt = time.Time{}
	s.mu.Unlock()
	return nil
}
