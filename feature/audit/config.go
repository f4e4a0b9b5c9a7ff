package audit

import (
	"fmt"
	"strings"
	"time"
)

// Config holds configuration for the audit poller.
type Config struct {
	// Enabled turns the audit runner on.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// IntervalSeconds is the sleep between two polls.
	IntervalSeconds int `mapstructure:"interval_seconds" default:"15"`
	// Sources lists the audit sources as "id=table" pairs separated by commas.
	// A bare id uses Table.
	Sources string `mapstructure:"sources" default:"farm"`
	// Table is the default audit table.
	Table string `mapstructure:"table" default:"audit_log"`
	// OccurredColumn holds the row timestamp.
	OccurredColumn string `mapstructure:"occurred_column" default:"occurred"`
	// DigestColumn optionally names a column holding a row digest. When set,
	// tie-break exclusion happens in the query.
	DigestColumn string `mapstructure:"digest_column" default:""`
	// DiscoverySeconds is how often the source list is checked again.
	DiscoverySeconds int `mapstructure:"discovery_seconds" default:"900"`
	// PersistTieBreak writes the tie-break digests to the position store.
	PersistTieBreak bool `mapstructure:"persist_tie_break" default:"true"`
	// Checkpoint is the name of the position store.
	Checkpoint string `mapstructure:"checkpoint" default:"audit.txt"`
	// SourcesCheckpoint is the name of the discovered source store.
	SourcesCheckpoint string `mapstructure:"sources_checkpoint" default:"audit_sources.txt"`
}

// SourceSpec is one configured source.
type SourceSpec struct {
	ID    string
	Table string
}

// Interval returns the poll interval.
func (c Config) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

// DiscoveryInterval returns how long a discovered source list stays valid.
func (c Config) DiscoveryInterval() time.Duration {
	if c.DiscoverySeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.DiscoverySeconds) * time.Second
}

// SourceSpecs parses Sources.
func (c Config) SourceSpecs() ([]SourceSpec, error) {
	var specs []SourceSpec
	seen := make(map[string]struct{})
	for _, part := range strings.Split(c.Sources, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, table, found := strings.Cut(part, "=")
		id = strings.TrimSpace(id)
		table = strings.TrimSpace(table)
		if !found {
			table = c.Table
		}
		if id == "" || table == "" {
			return nil, fmt.Errorf("invalid audit source %q", part)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate audit source %q", id)
		}
		seen[id] = struct{}{}
		specs = append(specs, SourceSpec{ID: id, Table: table})
	}
	return specs, nil
}
