// Package poller runs a poll cycle on a fixed interval and handles outages of
// the polled system.
//
// A cycle that fails with an error wrapping ErrUnavailable is not fatal: the
// runner probes the source every RetryWait until it answers again, then runs
// the cycle again from scratch. If the outage lasted longer than ResetAfter
// the Reset hook runs first so persisted state is reloaded and sources are
// rediscovered. Any other cycle error stops the runner.
package poller
