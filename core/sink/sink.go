package sink

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"sync"
)

// Sink accepts emissions. Emit returns only after the event has been handed
// to the underlying transport, so callers can commit state afterwards.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

const (
	FormatText = "text"
	FormatXML  = "xml"
)

// Writer renders events onto an io.Writer.
type Writer struct {
	mu         sync.Mutex
	w          io.Writer
	format     string
	sourceType string
	opened     bool
	closed     bool
	count      int64
}

// NewWriter creates a writer for the given format. sourceType is only written
// by the xml format.
func NewWriter(w io.Writer, format, sourceType string) (*Writer, error) {
	switch format {
	case FormatText, FormatXML:
	default:
		return nil, fmt.Errorf("unknown sink format %q", format)
	}
	return &Writer{w: w, format: format, sourceType: sourceType}, nil
}

// Emit writes one event.
func (s *Writer) Emit(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("sink is closed")
	}

	var err error
	switch s.format {
	case FormatXML:
		err = s.writeXML(event)
	default:
		_, err = io.WriteString(s.w, event.Render()+"\n\n")
	}
	if err != nil {
		return fmt.Errorf("failed to emit %s event: %w", event.Type, err)
	}
	s.count++
	return nil
}

func (s *Writer) writeXML(event Event) error {
	if !s.opened {
		if _, err := io.WriteString(s.w, "<stream>\n"); err != nil {
			return err
		}
		s.opened = true
	}

	ew := &errWriter{w: s.w}
	ew.write("<event>")
	if !event.Time.IsZero() {
		ew.write("<time>")
		ew.write(strconv.FormatFloat(float64(event.Time.UnixMilli())/1000, 'f', 3, 64))
		ew.write("</time>")
	}
	if event.Source != "" {
		ew.write("<source>")
		ew.escape(event.Source)
		ew.write("</source>")
	}
	if s.sourceType != "" {
		ew.write("<sourcetype>")
		ew.escape(s.sourceType)
		ew.write("</sourcetype>")
	}
	ew.write("<data>")
	ew.escape(event.Render())
	ew.write("</data></event>\n")
	return ew.err
}

// Count returns the number of events written so far.
func (s *Writer) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close terminates the xml stream. Further emissions fail.
func (s *Writer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.format == FormatXML && s.opened {
		if _, err := io.WriteString(s.w, "</stream>\n"); err != nil {
			return err
		}
	}
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) write(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}

func (e *errWriter) escape(s string) {
	if e.err != nil {
		return
	}
	e.err = xml.EscapeText(e.w, []byte(s))
}
