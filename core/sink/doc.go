// Package sink renders change, error and audit events and writes them to the
// log-aggregation pipeline.
//
// Two stream formats are supported:
//
//   - text: each event is a block of lines terminated by a blank line.
//   - xml: Splunk modular-input streaming mode, one <event> per emission
//     inside a single <stream> element.
//
// A Writer is safe for concurrent use, so the inventory and audit runners can
// share one output stream.
package sink
