// Package eventlog хранит последние операционные события сервера
// (создание/закрытие комнат, вход/выход участников) для диагностики.
package eventlog

import (
	"fmt"
	"sync"
	"time"

	"github.com/cwrk-planet/presence-relay/internal/domain"
)

const DefaultCapacity = 50

// Log - кольцевой буфер фиксированной ёмкости; при переполнении
// вытесняется самое старое событие.
type Log struct {
	mu   sync.RWMutex
	buf  []domain.Event
	next int // позиция следующей записи
	size int
	now  func() time.Time
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		buf: make([]domain.Event, capacity),
		now: time.Now,
	}
}

func (l *Log) Append(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf[l.next] = domain.Event{Timestamp: l.now(), Message: message}
	l.next = (l.next + 1) % len(l.buf)
	if l.size < len(l.buf) {
		l.size++
	}
}

func (l *Log) Appendf(format string, args ...any) {
	l.Append(fmt.Sprintf(format, args...))
}

// Recent возвращает копию буфера, новые события первыми.
func (l *Log) Recent() []domain.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Event, 0, l.size)
	for i := 1; i <= l.size; i++ {
		idx := (l.next - i + len(l.buf)) % len(l.buf)
		out = append(out, l.buf[idx])
	}
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}
