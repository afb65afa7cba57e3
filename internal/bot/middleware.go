package bot

import (
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-gamble-bot/internal/config"
)

// Whitelist gates updates by chat. Users seen in an allowed group may also
// talk to the bot privately.
type Whitelist struct {
	cfg *config.Config

	mu       sync.RWMutex
	privates map[int64]bool
}

// NewWhitelist creates a whitelist backed by cfg.Whitelist.
func NewWhitelist(cfg *config.Config) *Whitelist {
	return &Whitelist{cfg: cfg, privates: make(map[int64]bool)}
}

// AllowPrivate marks a user as allowed to use private chat.
func (w *Whitelist) AllowPrivate(userID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.privates[userID] = true
}

// PrivateAllowed reports whether a user may use private chat.
func (w *Whitelist) PrivateAllowed(userID int64) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.privates[userID]
}

// Middleware drops updates from chats that are not whitelisted.
func (w *Whitelist) Middleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()
			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				if len(w.cfg.Whitelist.Chats) == 0 || w.PrivateAllowed(sender.ID) {
					return next(c)
				}
				log.Debug().Int64("user_id", sender.ID).Msg("Ignoring private chat from unknown user")
				return nil
			}

			if !w.cfg.IsChatAllowed(chat.ID) {
				log.Debug().Int64("chat_id", chat.ID).Msg("Ignoring command from non-whitelisted chat")
				return nil
			}

			w.AllowPrivate(sender.ID)
			return next(c)
		}
	}
}

// AdminMiddleware rejects users that are not in admin.ids.
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
				return c.Reply("❌ Admins only.")
			}
			return next(c)
		}
	}
}

// LoggingMiddleware logs all incoming messages.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			logEvent := log.Debug()
			if sender := c.Sender(); sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat := c.Chat(); chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.Str("text", c.Text()).Msg("Received message")

			return next(c)
		}
	}
}

// RecoveryMiddleware recovers from panics in handlers.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("text", c.Text()).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Something broke, try again later.")
				}
			}()
			return next(c)
		}
	}
}
