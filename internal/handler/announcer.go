package handler

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-gamble-bot/internal/game/haunt"
)

// Sender is the part of *tele.Bot used to push messages.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// ChatAnnouncer delivers haunted house output to Telegram. Announcements go
// to the configured chat, or to the last chat a /haunt came from.
type ChatAnnouncer struct {
	sender    Sender
	fixedChat int64

	mu       sync.Mutex
	lastChat int64
}

var _ haunt.Announcer = (*ChatAnnouncer)(nil)

// NewChatAnnouncer creates an announcer. chatID 0 follows the players.
func NewChatAnnouncer(sender Sender, chatID int64) *ChatAnnouncer {
	return &ChatAnnouncer{sender: sender, fixedChat: chatID}
}

// Remember records the chat a haunt command came from.
func (a *ChatAnnouncer) Remember(chatID int64) {
	a.mu.Lock()
	a.lastChat = chatID
	a.mu.Unlock()
}

func (a *ChatAnnouncer) chat() (int64, bool) {
	if a.fixedChat != 0 {
		return a.fixedChat, true
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastChat, a.lastChat != 0
}

// Announce posts text in the haunt chat.
func (a *ChatAnnouncer) Announce(text string) {
	chatID, ok := a.chat()
	if !ok {
		log.Warn().Str("text", text).Msg("No haunt chat known, dropping announcement")
		return
	}
	if _, err := a.sender.Send(&tele.Chat{ID: chatID}, text); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send haunt announcement")
	}
}

// Whisper sends text privately. Users who never opened a private chat with
// the bot are mentioned in the haunt chat instead.
func (a *ChatAnnouncer) Whisper(p haunt.Player, text string) {
	_, err := a.sender.Send(&tele.User{ID: p.ID}, text)
	if err == nil {
		return
	}
	log.Debug().Err(err).Int64("user_id", p.ID).Msg("Private message failed, mentioning in chat")
	a.Announce(fmt.Sprintf("@%s %s", p.Name, text))
}

// NotifyAdmins returns a round hook that tells every admin about payouts
// that could not be credited.
func (a *ChatAnnouncer) NotifyAdmins(adminIDs []int64) func(*haunt.RoundResult) {
	return func(result *haunt.RoundResult) {
		if len(result.Unpaid) == 0 || len(adminIDs) == 0 {
			return
		}

		var b strings.Builder
		fmt.Fprintf(&b, "⚠️ Haunt round %s has unpaid winnings:\n", result.RoundID)
		for _, p := range result.Unpaid {
			fmt.Fprintf(&b, "• %s (id %d): %d bones\n", p.Player.Name, p.Player.ID, p.Amount)
		}
		text := strings.TrimSuffix(b.String(), "\n")

		for _, id := range adminIDs {
			if _, err := a.sender.Send(&tele.User{ID: id}, text); err != nil {
				log.Error().Err(err).Int64("admin_id", id).Msg("Failed to notify admin of unpaid winnings")
			}
		}
	}
}
