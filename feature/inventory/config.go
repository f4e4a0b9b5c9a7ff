package inventory

import "time"

// Config holds configuration for the inventory poller.
type Config struct {
	// Enabled turns the inventory runner on.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// IntervalSeconds is the sleep between two cycles.
	IntervalSeconds int `mapstructure:"interval_seconds" default:"86400"`
	// Collector selects where snapshots come from: "storage" or "file".
	Collector string `mapstructure:"collector" default:"storage"`
	// Path is the object prefix (storage) or the snapshot file (file).
	Path string `mapstructure:"path" default:"snapshots/"`
	// Checkpoint is the name of the checksum cache store.
	Checkpoint string `mapstructure:"checkpoint" default:"inventory.txt"`
}

const (
	CollectorStorage = "storage"
	CollectorFile    = "file"
)

// Interval returns the cycle interval.
func (c Config) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}
