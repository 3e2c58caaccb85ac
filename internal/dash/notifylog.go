package dash

import (
	"fmt"
	"sync"
	"time"
)

// DefaultLogCapacity is used when a non-positive capacity is requested.
const DefaultLogCapacity = 200

// WaitingMessage stands in for the log until the first line arrives.
const WaitingMessage = "Waiting for server events..."

// LogLine is one human-readable notification.
type LogLine struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

func (l LogLine) String() string {
	return fmt.Sprintf("[%s] %s", l.Timestamp, l.Message)
}

// NotificationLog is a bounded, newest-first list of notification lines.
// When full, the oldest line is dropped.
type NotificationLog struct {
	mu       sync.RWMutex
	lines    []LogLine // newest first
	capacity int
	now      func() time.Time

	feed Value[LogLine]
}

// NewNotificationLog creates a log holding at most capacity lines.
func NewNotificationLog(capacity int) *NotificationLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &NotificationLog{
		lines:    make([]LogLine, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Add appends a line stamped with the local wall-clock time.
func (l *NotificationLog) Add(msg string) {
	line := LogLine{Timestamp: l.now().Format("15:04:05"), Message: msg}

	l.mu.Lock()
	if len(l.lines) < l.capacity {
		l.lines = append(l.lines, LogLine{})
	}
	copy(l.lines[1:], l.lines[:len(l.lines)-1])
	l.lines[0] = line
	l.mu.Unlock()

	l.feed.Set(line)
}

// Addf is Add with fmt.Sprintf formatting.
func (l *NotificationLog) Addf(format string, args ...any) {
	l.Add(fmt.Sprintf(format, args...))
}

// Lines returns a copy of the log, newest first.
func (l *NotificationLog) Lines() []LogLine {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]LogLine, len(l.lines))
	copy(out, l.lines)
	return out
}

// View is Lines for display: an empty log shows a single untimed
// WaitingMessage line.
func (l *NotificationLog) View() []LogLine {
	if lines := l.Lines(); len(lines) > 0 {
		return lines
	}
	return []LogLine{{Message: WaitingMessage}}
}

// Len returns the number of retained lines.
func (l *NotificationLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.lines)
}

// Capacity returns the configured bound.
func (l *NotificationLog) Capacity() int { return l.capacity }

// Subscribe calls fn with every line added after subscription.
func (l *NotificationLog) Subscribe(fn func(LogLine)) (unsubscribe func()) {
	return l.feed.Subscribe(fn)
}
