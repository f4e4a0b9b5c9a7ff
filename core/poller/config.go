package poller

import "time"

// Config holds outage handling settings shared by every runner.
type Config struct {
	// RetryWaitSeconds is the delay between availability probes.
	RetryWaitSeconds int `mapstructure:"retry_wait_seconds" default:"60"`
	// ResetAfterSeconds is the outage length after which state is reloaded.
	// Zero disables the reset.
	ResetAfterSeconds int `mapstructure:"reset_after_seconds" default:"900"`
}

// RetryWait returns the probe delay.
func (c Config) RetryWait() time.Duration {
	if c.RetryWaitSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RetryWaitSeconds) * time.Second
}

// ResetAfter returns the outage threshold.
func (c Config) ResetAfter() time.Duration {
	return time.Duration(c.ResetAfterSeconds) * time.Second
}
