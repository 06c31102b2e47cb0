// Package chat keeps a bounded in-memory history of session messages.
package chat

import (
	"fmt"
	"sync"
)

const DefaultCapacity = 200

// Log is a fixed-capacity message buffer. Once full, appending evicts
// the oldest line.
type Log struct {
	lock  sync.RWMutex
	cap   int
	lines []string
}

func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{cap: capacity}
}

// Append records one message attributed to its author.
func (l *Log) Append(author, text string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s: %s", author, text))
	if len(l.lines) > l.cap {
		l.lines = l.lines[len(l.lines)-l.cap:]
	}
}

// Tail returns the most recent n formatted lines, oldest first.
func (l *Log) Tail(n int) []string {
	l.lock.RLock()
	defer l.lock.RUnlock()
	if n < 0 {
		n = 0
	}
	if n > len(l.lines) {
		n = len(l.lines)
	}
	tail := make([]string, n)
	copy(tail, l.lines[len(l.lines)-n:])
	return tail
}

func (l *Log) Len() int {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return len(l.lines)
}
