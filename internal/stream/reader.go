package stream

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// maxLine bounds a single field line. Longer lines are discarded along
// with the event they belong to.
const maxLine = 1 << 20

// Event is one dispatched server-sent event.
type Event struct {
	ID   string
	Type string
	Data string
	// Oversized marks an event whose payload exceeded maxLine and was
	// discarded. Data is empty.
	Oversized bool
}

// reader splits a text/event-stream body into events.
type reader struct {
	br   *bufio.Reader
	line []byte

	// lastID persists across events, as the EventSource algorithm requires.
	lastID string
	// retry is the most recent server reconnection hint (0 if none).
	retry time.Duration
}

func newReader(r io.Reader) *reader {
	return &reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// readLine returns the next line without its terminator. A line longer
// than maxLine is consumed in full but reported as tooLong with no text.
func (r *reader) readLine() (line []byte, tooLong bool, err error) {
	r.line = r.line[:0]
	for {
		chunk, more, err := r.br.ReadLine()
		if err != nil {
			return nil, false, err
		}
		if !tooLong {
			if len(r.line)+len(chunk) > maxLine {
				tooLong = true
				r.line = r.line[:0]
			} else {
				r.line = append(r.line, chunk...)
			}
		}
		if !more {
			return r.line, tooLong, nil
		}
	}
}

// Next returns the next event carrying data. Comment lines and events
// without data are consumed silently. Returns io.EOF when the body ends.
func (r *reader) Next() (Event, error) {
	var (
		data      strings.Builder
		hasData   bool
		oversized bool
		evType    string
	)
	for {
		raw, tooLong, err := r.readLine()
		if err != nil {
			return Event{}, err
		}
		if tooLong {
			oversized = true
			data.Reset()
			continue
		}
		line := string(raw)
		if line == "" {
			if oversized {
				return Event{ID: r.lastID, Type: evType, Oversized: true}, nil
			}
			if !hasData {
				evType = ""
				continue
			}
			return Event{ID: r.lastID, Type: evType, Data: data.String()}, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			if oversized {
				continue
			}
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "event":
			evType = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				r.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
}
