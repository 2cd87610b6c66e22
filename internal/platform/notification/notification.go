// Package notification provides the user-facing toast channel that state slices
// push success and failure messages to. Messages are transient: a bounded
// buffer keeps the most recent ones and subscribers are called synchronously.
package notification

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level is the severity of a toast message.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is a single toast.
type Message struct {
	Level     Level     `json:"level"`
	Source    string    `json:"source"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier receives toast messages.
type Notifier interface {
	Notify(msg Message)
}

// Success sends a success toast through n.
func Success(n Notifier, source, text string) {
	send(n, LevelSuccess, source, text)
}

// Info sends an informational toast through n.
func Info(n Notifier, source, text string) {
	send(n, LevelInfo, source, text)
}

// Warning sends a warning toast through n.
func Warning(n Notifier, source, text string) {
	send(n, LevelWarning, source, text)
}

// Error sends an error toast through n.
func Error(n Notifier, source, text string) {
	send(n, LevelError, source, text)
}

func send(n Notifier, level Level, source, text string) {
	if n == nil {
		return
	}
	n.Notify(Message{Level: level, Source: source, Text: text, CreatedAt: time.Now()})
}

// ---------------------------------------------------------------------------
// Channel
// ---------------------------------------------------------------------------

// DefaultCapacity is the number of toasts a Channel retains.
const DefaultCapacity = 50

// Channel is an in-memory Notifier. It retains the last N messages and fans
// each new message out to subscribers.
type Channel struct {
	mu       sync.RWMutex
	capacity int
	messages []Message
	subs     map[int]func(Message)
	nextSub  int
}

// NewChannel creates a Channel retaining up to capacity messages. A
// non-positive capacity selects DefaultCapacity.
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		capacity: capacity,
		subs:     make(map[int]func(Message)),
	}
}

// Notify stores msg, dropping the oldest message when the buffer is full.
func (c *Channel) Notify(msg Message) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	c.mu.Lock()
	if len(c.messages) >= c.capacity {
		c.messages = append(c.messages[:0], c.messages[1:]...)
	}
	c.messages = append(c.messages, msg)
	subs := make([]func(Message), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(msg)
	}
}

// Messages returns a copy of the retained messages, oldest first.
func (c *Channel) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Last returns the most recent message, if any.
func (c *Channel) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Clear drops all retained messages.
func (c *Channel) Clear() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}

// Subscribe registers fn for every future message. The returned function
// removes the subscription.
func (c *Channel) Subscribe(fn func(Message)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// ---------------------------------------------------------------------------
// Log and fan-out notifiers
// ---------------------------------------------------------------------------

// LogNotifier writes every toast to a zerolog logger.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(msg Message) {
	evt := l.logger.Info()
	switch msg.Level {
	case LevelError:
		evt = l.logger.Error()
	case LevelWarning:
		evt = l.logger.Warn()
	}
	evt.Str("source", msg.Source).Str("toast_level", string(msg.Level)).Msg(msg.Text)
}

// Multi fans a message out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(msg Message) {
	for _, n := range m {
		if n != nil {
			n.Notify(msg)
		}
	}
}
