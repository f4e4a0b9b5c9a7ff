package audit

import (
	"sort"
	"strings"
	"time"

	"farm-agent/core/utils"
)

// Position is the delivery state of one log source. The zero value means
// nothing has been delivered yet.
type Position struct {
	LastTimestamp time.Time
	TieBreak      map[string]struct{}
}

// Eligible reports whether a row at occurred with digest has not been
// delivered yet. Timestamps are compared at tick precision, the precision of
// the position store.
func (p Position) Eligible(occurred time.Time, digest string) bool {
	occurred = utils.TruncateToTick(occurred)
	if occurred.After(p.LastTimestamp) {
		return true
	}
	if !occurred.Equal(p.LastTimestamp) {
		return false
	}
	_, seen := p.TieBreak[digest]
	return !seen
}

// Advance records delivery of an eligible row. A later timestamp replaces the
// tie-break set, an equal one extends it.
func (p *Position) Advance(occurred time.Time, digest string) {
	occurred = utils.TruncateToTick(occurred)
	if occurred.After(p.LastTimestamp) {
		p.LastTimestamp = occurred
		p.TieBreak = nil
	}
	if p.TieBreak == nil {
		p.TieBreak = make(map[string]struct{})
	}
	p.TieBreak[digest] = struct{}{}
}

// Digests returns the tie-break set sorted.
func (p Position) Digests() []string {
	out := make([]string, 0, len(p.TieBreak))
	for d := range p.TieBreak {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy.
func (p Position) Clone() Position {
	c := Position{LastTimestamp: p.LastTimestamp}
	if p.TieBreak != nil {
		c.TieBreak = make(map[string]struct{}, len(p.TieBreak))
		for d := range p.TieBreak {
			c.TieBreak[d] = struct{}{}
		}
	}
	return c
}

// IsZero reports whether nothing has been delivered.
func (p Position) IsZero() bool {
	return p.LastTimestamp.IsZero() && len(p.TieBreak) == 0
}

func validDigest(d string) bool {
	return d != "" && !strings.ContainsAny(d, " ,\t\r\n")
}
