// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-gamble-bot/internal/config"
	"chat-gamble-bot/internal/game"
	"chat-gamble-bot/internal/handler"
	"chat-gamble-bot/internal/pkg/lock"
	"chat-gamble-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot       *tele.Bot
	cfg       *config.Config
	whitelist *Whitelist

	accountHandler *handler.AccountHandler
	gameHandler    *handler.GameHandler
	hauntHandler   *handler.HauntHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config         *config.Config
	AccountService *service.AccountService
	GameRegistry   *game.Registry
	Haunt          handler.HauntRounds
	Announcer      *handler.ChatAnnouncer
	UserLock       *lock.UserLock
	Cooldowns      *handler.Cooldowns
}

// NewTeleBot creates the telebot client without starting it. The announcer
// needs it before the handlers exist.
func NewTeleBot(cfg *config.Config) (*tele.Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot token is required")
	}

	teleBot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Bot.PollTimeout},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// New registers middleware and handlers on teleBot.
func New(teleBot *tele.Bot, deps *Dependencies) *Bot {
	cfg := deps.Config
	b := &Bot{
		bot:       teleBot,
		cfg:       cfg,
		whitelist: NewWhitelist(cfg),
	}

	b.accountHandler = handler.NewAccountHandler(deps.AccountService, deps.UserLock)
	b.gameHandler = handler.NewGameHandler(deps.AccountService, deps.GameRegistry, deps.UserLock, deps.Cooldowns, teleBot)
	b.adminHandler = handler.NewAdminHandler(deps.AccountService, deps.UserLock)
	b.hauntHandler = handler.NewHauntHandler(
		deps.Haunt,
		deps.AccountService,
		deps.Announcer,
		deps.Cooldowns,
		time.Duration(cfg.Games.Haunt.UserCooldownSeconds)*time.Second,
		time.Duration(cfg.Games.Haunt.CommandCooldown)*time.Second,
	)

	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(b.whitelist.Middleware())
	b.bot.Use(LoggingMiddleware())

	b.registerHandlers(deps.GameRegistry)
	return b
}

func (b *Bot) registerHandlers(registry *game.Registry) {
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/daily", b.accountHandler.HandleDaily)
	b.bot.Handle("/history", b.accountHandler.HandleHistory)

	b.bot.Handle("/haunt", b.hauntHandler.HandleHaunt)

	for _, cmd := range registry.Commands() {
		b.bot.Handle("/"+cmd, b.gameHandler.Handler(cmd))
	}

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/haunt_status", b.hauntHandler.HandleStatus)
	adminGroup.Handle("/haunt_payout", b.adminHandler.HandleHauntPayout)
	adminGroup.Handle("/admin_sub", b.adminHandler.HandleAdminSub)
}

// Start starts polling. It blocks until Stop.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
