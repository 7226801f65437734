package game

import (
	"sync"
	"time"
)

// NoticeKind labels a celebration or warning pushed to front ends.
type NoticeKind string

// Notice kinds.
const (
	NoticeContent     NoticeKind = "content"
	NoticeUpgrade     NoticeKind = "upgrade"
	NoticeUnlock      NoticeKind = "unlock"
	NoticeLevelUp     NoticeKind = "levelup"
	NoticeModQueue    NoticeKind = "modqueue"
	NoticeViral       NoticeKind = "viral"
	NoticeCrisis      NoticeKind = "crisis"
	NoticeEnergyError NoticeKind = "energy-error"
	NoticeTierUp      NoticeKind = "tier-up"
	NoticeGameOver    NoticeKind = "game-over"
)

// Notice is a fire-and-forget signal. It is not part of simulation state.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	Target  string     `json:"target,omitempty"`
	At      time.Time  `json:"at"`
}

// Notifier receives notices. Implementations must not block the caller.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }

// NopNotifier drops every notice.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(Notice) {}

// Broadcaster fans notices out to subscribers added at runtime.
type Broadcaster struct {
	mu   sync.RWMutex
	subs []Notifier
}

// Subscribe adds a notifier.
func (b *Broadcaster) Subscribe(n Notifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, n)
}

// Notify forwards n to every subscriber.
func (b *Broadcaster) Notify(n Notice) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		s.Notify(n)
	}
}
