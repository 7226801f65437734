// Package bot wires the game into a Telegram bot.
package bot

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"karma-tycoon/internal/config"
)

// UserSet remembers users seen in whitelisted groups. They may then use
// the bot in private chat.
type UserSet struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewUserSet creates an empty UserSet.
func NewUserSet() *UserSet {
	return &UserSet{ids: make(map[int64]struct{})}
}

// Add marks a user as allowed in private chat.
func (s *UserSet) Add(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[userID] = struct{}{}
}

// Has checks if a user is allowed in private chat.
func (s *UserSet) Has(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[userID]
	return ok
}

// WhitelistMiddleware drops updates from chats that are not whitelisted.
// Private chats pass when the whitelist is empty or the user was seen in
// a whitelisted group.
func WhitelistMiddleware(cfg *config.Config, seen *UserSet) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()

			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				if seen.Has(sender.ID) || len(cfg.Whitelist.Chats) == 0 {
					return next(c)
				}
				log.Debug().
					Int64("user_id", sender.ID).
					Msg("Ignoring private chat from unknown user")
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring update from non-whitelisted chat")
				return nil
			}

			seen.Add(sender.ID)
			return next(c)
		}
	}
}

// AdminMiddleware rejects commands from users outside the admin list.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ Admins only")
			}

			return next(c)
		}
	}
}

// CooldownMiddleware throttles each user to one update per interval.
// Throttled callbacks get a short answer, other updates are dropped.
func CooldownMiddleware(interval time.Duration, now func() time.Time) tele.MiddlewareFunc {
	var last sync.Map // map[int64]time.Time
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || interval <= 0 {
				return next(c)
			}

			t := now()
			if prev, ok := last.Load(sender.ID); ok {
				if wait := interval - t.Sub(prev.(time.Time)); wait > 0 {
					if c.Callback() != nil {
						return c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf("⏳ Slow down (%.1fs)", wait.Seconds())})
					}
					return nil
				}
			}
			last.Store(sender.ID, t)
			return next(c)
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming updates.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received update")

			return next(c)
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Internal error, try again later")
				}
			}()
			return next(c)
		}
	}
}
