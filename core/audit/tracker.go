package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"farm-agent/core/checkpoint"
	"farm-agent/core/sink"
	"farm-agent/core/utils"

	"go.uber.org/zap"
)

// EventType is the event type of delivered audit rows.
const EventType = "Audit"

// ErrCorruptStore is returned by Load when the position store cannot be parsed.
var ErrCorruptStore = errors.New("corrupt audit position store")

// PollResult counts what one poll of a source did.
type PollResult struct {
	Fetched   int `json:"fetched"`
	Delivered int `json:"delivered"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// SourcePosition is a read-only view of one tracked source.
type SourcePosition struct {
	Source        string    `json:"source"`
	LastTimestamp time.Time `json:"last_timestamp"`
	TieBreak      []string  `json:"tie_break"`
}

// Tracker holds the positions of every audit source and delivers new rows.
type Tracker struct {
	mu              sync.RWMutex
	backend         checkpoint.Backend
	sink            sink.Sink
	logger          *zap.Logger
	now             func() time.Time
	persistTieBreak bool

	positions map[string]Position
	version   uint64
	saved     uint64
}

// NewTracker creates an empty tracker. persistTieBreak controls whether the
// tie-break digests are written to the store.
func NewTracker(backend checkpoint.Backend, s sink.Sink, logger *zap.Logger, persistTieBreak bool) *Tracker {
	return &Tracker{
		backend:         backend,
		sink:            s,
		logger:          logger,
		now:             time.Now,
		persistTieBreak: persistTieBreak,
		positions:       make(map[string]Position),
	}
}

// SetClock replaces the time source used for query ends and error events.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// Poll fetches rows newer than the source's position, delivers the eligible
// ones in occurrence order and advances the position after each emission.
// A fetch failure leaves the position untouched.
func (t *Tracker) Poll(ctx context.Context, src Source) (PollResult, error) {
	var res PollResult
	id := src.ID()
	if err := validateSourceID(id); err != nil {
		return res, err
	}

	t.mu.RLock()
	pos := t.positions[id].Clone()
	t.mu.RUnlock()
	first := pos.IsZero()

	q := Query{Start: pos.LastTimestamp, End: t.now().UTC(), Exclude: pos.Digests()}
	rows, err := src.Fetch(ctx, q)
	if err != nil {
		return res, fmt.Errorf("failed to fetch audit rows from %s: %w", id, err)
	}
	res.Fetched = len(rows)

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Occurred.Before(rows[j].Occurred)
	})

	commit := func() {
		if res.Delivered == 0 {
			return
		}
		t.mu.Lock()
		t.positions[id] = pos
		t.version++
		t.mu.Unlock()
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			commit()
			return res, err
		}

		if row.Err == nil && !validDigest(row.Digest) {
			row.Err = fmt.Errorf("row at %s has an invalid digest %q", row.Occurred.UTC().Format(time.RFC3339Nano), row.Digest)
		}
		if row.Err != nil {
			res.Errors++
			event := sink.Failure(t.now(), EventType, id, "", row.Err)
			event.Source = id
			if !row.Occurred.IsZero() {
				event.Fields["Occurred"] = row.Occurred.UTC().Format(time.RFC3339Nano)
			}
			if err := t.sink.Emit(ctx, event); err != nil {
				commit()
				return res, fmt.Errorf("failed to emit audit error for %s: %w", id, err)
			}
			continue
		}

		if !pos.Eligible(row.Occurred, row.Digest) {
			res.Skipped++
			continue
		}

		event := sink.Event{Time: row.Occurred, Type: EventType, Source: id, Fields: row.Fields}
		if err := t.sink.Emit(ctx, event); err != nil {
			commit()
			return res, fmt.Errorf("failed to emit audit row for %s: %w", id, err)
		}
		pos.Advance(row.Occurred, row.Digest)
		res.Delivered++
	}

	commit()

	t.logger.Debug("Audit source polled",
		zap.String("source", id),
		zap.Int("fetched", res.Fetched),
		zap.Int("delivered", res.Delivered),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", res.Errors),
		zap.Time("position", pos.LastTimestamp),
		zap.Bool("first_poll", first),
	)
	return res, nil
}

// Position returns a copy of the position of source.
func (t *Tracker) Position(source string) (Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pos, ok := t.positions[source]
	return pos.Clone(), ok
}

// Positions returns every tracked source sorted by id.
func (t *Tracker) Positions() []SourcePosition {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]SourcePosition, 0, len(t.positions))
	for id, pos := range t.positions {
		out = append(out, SourcePosition{Source: id, LastTimestamp: pos.LastTimestamp, TieBreak: pos.Digests()})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Source < out[j].Source
	})
	return out
}

// Dirty reports whether positions changed since the last Load or Save.
func (t *Tracker) Dirty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version != t.saved
}

// Load replaces the in-memory positions with the persisted store. A missing
// store yields no positions.
func (t *Tracker) Load(ctx context.Context) error {
	data, err := t.backend.Read(ctx)
	if errors.Is(err, checkpoint.ErrNotFound) {
		t.logger.Info("No audit position store found, starting from the beginning", zap.String("location", t.backend.Location()))
		t.mu.Lock()
		t.positions = make(map[string]Position)
		t.saved = t.version
		t.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load audit positions: %w", err)
	}

	positions := make(map[string]Position)
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		id, pos, err := parsePosition(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		if _, dup := positions[id]; dup {
			return fmt.Errorf("line %d: %w: duplicate source %s", i+1, ErrCorruptStore, id)
		}
		positions[id] = pos
	}

	t.mu.Lock()
	t.positions = positions
	t.saved = t.version
	t.mu.Unlock()

	t.logger.Info("Loaded audit positions",
		zap.String("location", t.backend.Location()),
		zap.Int("sources", len(positions)),
	)
	return nil
}

// Save writes every position when something was delivered since the last
// Load or Save.
func (t *Tracker) Save(ctx context.Context) error {
	t.mu.RLock()
	if t.version == t.saved {
		t.mu.RUnlock()
		return nil
	}
	version := t.version
	ids := make([]string, 0, len(t.positions))
	for id := range t.positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		b.WriteString(formatPosition(id, t.positions[id], t.persistTieBreak))
		b.WriteString("\n")
	}
	t.mu.RUnlock()

	if err := t.backend.Write(ctx, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to save audit positions: %w", err)
	}

	t.mu.Lock()
	t.saved = version
	t.mu.Unlock()

	t.logger.Debug("Saved audit positions",
		zap.String("location", t.backend.Location()),
		zap.Int("sources", len(ids)),
	)
	return nil
}

// Reset forgets every position and removes the persisted store.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.backend.Remove(ctx); err != nil {
		return fmt.Errorf("failed to reset audit positions: %w", err)
	}

	t.mu.Lock()
	t.positions = make(map[string]Position)
	t.saved = t.version
	t.mu.Unlock()

	t.logger.Warn("Audit positions reset", zap.String("location", t.backend.Location()))
	return nil
}

func formatPosition(id string, pos Position, withTieBreak bool) string {
	line := id + "," + utils.FormatTicks(pos.LastTimestamp)
	if withTieBreak && len(pos.TieBreak) > 0 {
		line += "," + strings.Join(pos.Digests(), " ")
	}
	return line
}

func parsePosition(line string) (string, Position, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return "", Position{}, fmt.Errorf("%w: malformed line %q", ErrCorruptStore, line)
	}

	id := parts[0]
	if err := validateSourceID(id); err != nil {
		return "", Position{}, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	ts, err := utils.ParseTicks(parts[1])
	if err != nil {
		return "", Position{}, fmt.Errorf("%w: bad timestamp in %q: %v", ErrCorruptStore, line, err)
	}

	pos := Position{LastTimestamp: ts}
	if len(parts) == 3 {
		for _, d := range strings.Fields(parts[2]) {
			if !validDigest(d) {
				return "", Position{}, fmt.Errorf("%w: bad digest %q", ErrCorruptStore, d)
			}
			if pos.TieBreak == nil {
				pos.TieBreak = make(map[string]struct{})
			}
			pos.TieBreak[d] = struct{}{}
		}
	}
	return id, pos, nil
}

func validateSourceID(id string) error {
	if id == "" {
		return errors.New("empty audit source id")
	}
	if strings.ContainsAny(id, ",\r\n") {
		return fmt.Errorf("audit source id %q contains a comma or line break", id)
	}
	return nil
}
