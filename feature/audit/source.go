package audit

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	coreaudit "farm-agent/core/audit"
	"farm-agent/core/poller"
	"farm-agent/core/reconcile"
	"farm-agent/core/utils"

	"gorm.io/gorm"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// DatabaseSource reads one audit table.
type DatabaseSource struct {
	db       *gorm.DB
	id       string
	table    string
	occurred string
	digest   string
}

// NewDatabaseSource creates a source over table. digestColumn may be empty,
// in which case digests are computed from the row contents.
func NewDatabaseSource(db *gorm.DB, id, table, occurredColumn, digestColumn string) (*DatabaseSource, error) {
	for _, name := range []string{table, occurredColumn} {
		if !identifierPattern.MatchString(name) {
			return nil, fmt.Errorf("invalid identifier %q", name)
		}
	}
	if digestColumn != "" && !identifierPattern.MatchString(digestColumn) {
		return nil, fmt.Errorf("invalid identifier %q", digestColumn)
	}
	return &DatabaseSource{
		db:       db,
		id:       id,
		table:    table,
		occurred: occurredColumn,
		digest:   digestColumn,
	}, nil
}

// ID returns the source id.
func (s *DatabaseSource) ID() string {
	return s.id
}

// Table returns the audit table name.
func (s *DatabaseSource) Table() string {
	return s.table
}

// Attributes describes the source for the source catalog.
func (s *DatabaseSource) Attributes() map[string]string {
	attrs := map[string]string{
		"Table":          s.table,
		"OccurredColumn": s.occurred,
	}
	if s.digest != "" {
		attrs["DigestColumn"] = s.digest
	}
	return attrs
}

// Fetch returns the rows whose timestamp lies in the query range. Errors are
// reported as unavailable so the caller retries on the next poll.
func (s *DatabaseSource) Fetch(ctx context.Context, q coreaudit.Query) ([]coreaudit.Row, error) {
	tx := s.db.WithContext(ctx).Table(s.table).Where(s.occurred+" <= ?", q.End)
	if !q.Start.IsZero() {
		tx = tx.Where(s.occurred+" >= ?", q.Start)
	}
	if s.digest != "" && len(q.Exclude) > 0 && !q.Start.IsZero() {
		tx = tx.Where("NOT ("+s.occurred+" = ? AND "+s.digest+" IN ?)", q.Start, q.Exclude)
	}

	var results []map[string]any
	if err := tx.Order(s.occurred).Find(&results).Error; err != nil {
		return nil, poller.Unavailable(fmt.Errorf("failed to query %s: %w", s.table, err))
	}

	rows := make([]coreaudit.Row, 0, len(results))
	for _, result := range results {
		rows = append(rows, s.decode(result))
	}
	return rows, nil
}

func (s *DatabaseSource) decode(result map[string]any) coreaudit.Row {
	fields := make(map[string]string, len(result))
	var row coreaudit.Row
	for col, val := range result {
		if strings.EqualFold(col, s.occurred) {
			t, err := utils.ToTime(val)
			if err != nil {
				row.Err = fmt.Errorf("column %s: %w", col, err)
				continue
			}
			row.Occurred = t
			fields[col] = t.Format(time.RFC3339Nano)
			continue
		}
		fields[col] = utils.ToString(val)
	}
	row.Fields = fields

	if row.Err == nil && row.Occurred.IsZero() {
		row.Err = fmt.Errorf("row has no %s value", s.occurred)
	}
	if s.digest != "" {
		row.Digest = fields[s.digest]
	} else {
		row.Digest = reconcile.Checksum(fields)
	}
	return row
}
