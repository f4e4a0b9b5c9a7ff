package audit

import (
	"context"
	"fmt"
	"strings"

	"farm-agent/core/database"
	"farm-agent/core/poller"
	"farm-agent/core/reconcile"

	"go.uber.org/zap"
)

// discover returns the configured sources whose table is present and
// reconciles the result into the source catalog.
func (s *Service) discover(ctx context.Context) ([]*DatabaseSource, error) {
	specs, err := s.cfg.SourceSpecs()
	if err != nil {
		return nil, err
	}

	var sources []*DatabaseSource
	for _, spec := range specs {
		l := s.logger.With(zap.String("source", spec.ID), zap.String("table", spec.Table))
		if strings.ContainsAny(spec.ID, ",\r\n"+reconcile.Separator) {
			l.Warn("Skipping audit source with an invalid id")
			continue
		}

		exists, err := database.TableExists(s.db, spec.Table)
		if err != nil {
			return nil, poller.Unavailable(fmt.Errorf("failed to inspect %s: %w", spec.Table, err))
		}
		if !exists {
			l.Warn("Audit table not found, source skipped")
			continue
		}

		wanted := []string{s.cfg.OccurredColumn}
		if s.cfg.DigestColumn != "" {
			wanted = append(wanted, s.cfg.DigestColumn)
		}
		missing, err := database.HasColumns(s.db, spec.Table, wanted...)
		if err != nil {
			return nil, poller.Unavailable(fmt.Errorf("failed to inspect %s: %w", spec.Table, err))
		}
		if len(missing) > 0 {
			l.Warn("Audit table lacks required columns, source skipped", zap.Strings("missing", missing))
			continue
		}

		src, err := NewDatabaseSource(s.db, spec.ID, spec.Table, s.cfg.OccurredColumn, s.cfg.DigestColumn)
		if err != nil {
			l.Warn("Skipping audit source", zap.Error(err))
			continue
		}
		sources = append(sources, src)
	}

	if err := s.catalogSources(ctx, sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// catalogSources records the discovered set as AuditSource records.
func (s *Service) catalogSources(ctx context.Context, sources []*DatabaseSource) error {
	entities := make([]reconcile.Entity, 0, len(sources))
	for _, src := range sources {
		entities = append(entities, reconcile.Entity{ID: src.ID(), Value: src})
	}

	res, err := s.catalog.Reconcile(ctx, reconcile.Scan{
		Category: reconcile.CategoryAuditSource,
		Entities: entities,
		Attributes: func(ctx context.Context, e reconcile.Entity) (map[string]string, error) {
			return e.Value.(*DatabaseSource).Attributes(), nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to reconcile audit sources: %w", err)
	}
	if err := s.catalog.Cache().Save(ctx); err != nil {
		return err
	}

	s.logger.Debug("Audit sources discovered",
		zap.Int("sources", len(sources)),
		zap.Int("added", res.Added),
		zap.Int("updated", res.Updated),
		zap.Int("deleted", res.Deleted),
	)
	return nil
}
