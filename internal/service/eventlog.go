package service

import (
	"github.com/Bytekeeper/xdccmon/internal/domain"
)

// EventLog is a capped FIFO buffer of pushed log events. It is not safe
// for concurrent use: it is owned and written solely by the UI loop, which
// receives decoded events over the stream subscriber's channel.
type EventLog struct {
	capacity int
	entries  []domain.LogEvent
}

// NewEventLog creates a buffer retaining at most capacity events
func NewEventLog(capacity int) *EventLog {
	if capacity < 1 {
		capacity = 1
	}
	return &EventLog{
		capacity: capacity,
		entries:  make([]domain.LogEvent, 0, capacity),
	}
}

// Append adds one event, evicting from the front until fewer than capacity
// remain first. Insertion order is preserved among retained entries.
func (l *EventLog) Append(ev domain.LogEvent) {
	for len(l.entries) >= l.capacity {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, ev)
}

// Entries returns the retained events, oldest first. The returned slice is
// shared with the buffer and must not be mutated.
func (l *EventLog) Entries() []domain.LogEvent {
	return l.entries
}

// Len returns the number of retained events
func (l *EventLog) Len() int {
	return len(l.entries)
}

// Capacity returns the maximum number of retained events
func (l *EventLog) Capacity() int {
	return l.capacity
}
