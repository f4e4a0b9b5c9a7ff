package sink

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"farm-agent/core/utils"
)

// Action labels a change event.
type Action string

const (
	ActionAdd    Action = "Add"
	ActionUpdate Action = "Update"
	ActionDelete Action = "Delete"
)

// TypeError is the event type of synthetic per-item error events.
const TypeError = "Error"

// TimeLayout is the universal sortable layout used on the first line of every
// rendered event.
const TimeLayout = "2006-01-02 15:04:05Z"

// Event is one emission.
type Event struct {
	// Time is when the event was observed or, for audit rows, when it occurred.
	Time time.Time
	// Type is the tracked category, TypeError, or the audit event type.
	Type string
	// Action is empty for error and audit events.
	Action Action
	// Source identifies the producing scope, for example an audit source id.
	Source string
	// Fields are rendered as key="value" lines in key order.
	Fields map[string]string
}

// Change builds an Add, Update or Delete event.
func Change(at time.Time, category string, action Action, fields map[string]string) Event {
	return Event{Time: at, Type: category, Action: action, Fields: fields}
}

// Failure builds an error event for an item that could not be read.
// location names the scan that failed, id and parentID identify the item.
func Failure(at time.Time, location, id, parentID string, err error) Event {
	fields := map[string]string{
		"Location":  location,
		"Exception": fmt.Sprintf("%T", err),
		"Message":   err.Error(),
	}
	if id != "" {
		fields["Id"] = id
	}
	if parentID != "" {
		fields["ParentId"] = parentID
	}
	return Event{Time: at, Type: TypeError, Fields: fields}
}

// Render returns the event body: the timestamp, Type and Action lines, then
// one key="value" line per field sorted by key. Values are made single-line
// and quote-safe.
func (e Event) Render() string {
	var b strings.Builder
	b.WriteString(e.Time.UTC().Format(TimeLayout))
	writeField(&b, "Type", e.Type)
	if e.Action != "" {
		writeField(&b, "Action", string(e.Action))
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		if k == "Type" || k == "Action" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeField(&b, k, e.Fields[k])
	}
	return b.String()
}

func writeField(b *strings.Builder, key, value string) {
	b.WriteString("\n")
	b.WriteString(key)
	b.WriteString(`="`)
	b.WriteString(utils.Quotable(value))
	b.WriteString(`"`)
}
