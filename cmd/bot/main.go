// Package main is the entry point for the chat gamble bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chat-gamble-bot/internal/bot"
	"chat-gamble-bot/internal/config"
	"chat-gamble-bot/internal/game"
	"chat-gamble-bot/internal/game/flip"
	"chat-gamble-bot/internal/game/haunt"
	"chat-gamble-bot/internal/game/spin"
	"chat-gamble-bot/internal/handler"
	"chat-gamble-bot/internal/httpapi"
	"chat-gamble-bot/internal/pkg/db"
	"chat-gamble-bot/internal/pkg/lock"
	"chat-gamble-bot/internal/pkg/rng"
	"chat-gamble-bot/internal/repository"
	"chat-gamble-bot/internal/service"
)

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	userRepo := repository.NewUserRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)

	accountService := service.NewAccountService(userRepo, txRepo, cfg.Daily.Reward, cfg.Daily.CooldownHours)
	userLock := lock.NewUserLock()
	src := rng.Default()

	gameRegistry, err := newGameRegistry(cfg, src)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register games")
	}
	log.Info().
		Int("game_count", gameRegistry.Count()).
		Strs("games", gameRegistry.Commands()).
		Msg("Games registered")

	teleBot, err := bot.NewTeleBot(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}
	announcer := handler.NewChatAnnouncer(teleBot, cfg.Games.Haunt.ChatID)

	narratives := haunt.DefaultNarratives()
	if path := cfg.Games.Haunt.NarrativesFile; path != "" {
		if narratives, err = haunt.LoadNarratives(path); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to load haunt narratives")
		}
	}

	scheduler, err := haunt.NewScheduler(hauntConfig(cfg.Games.Haunt), haunt.Dependencies{
		Balances:   service.NewWallet(accountService, userLock),
		Announcer:  announcer,
		Random:     src,
		Journal:    repository.NewHauntJournal(dbPool.Pool),
		Narratives: narratives,
		OnResolved: announcer.NotifyAdmins(cfg.Admin.IDs),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create haunt scheduler")
	}
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start haunt scheduler")
	}

	telegramBot := bot.New(teleBot, &bot.Dependencies{
		Config:         cfg,
		AccountService: accountService,
		GameRegistry:   gameRegistry,
		Haunt:          scheduler,
		Announcer:      announcer,
		UserLock:       userLock,
		Cooldowns:      handler.NewCooldowns(),
	})

	var statusServer *httpapi.Server
	if cfg.HTTP.Addr != "" {
		statusServer = httpapi.New(cfg.HTTP.Addr, dbPool, scheduler)
		go func() {
			if err := statusServer.Start(); err != nil {
				log.Error().Err(err).Msg("Status server failed")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go telegramBot.Start()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	scheduler.Stop()
	if statusServer != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		if err := statusServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Status server shutdown failed")
		}
		done()
	}
	log.Info().Msg("Bot stopped gracefully")
}

func hauntConfig(c config.HauntConfig) haunt.Config {
	return haunt.Config{
		Rules: haunt.Rules{
			PayoutRate:     c.PayoutRate,
			WinMultiplier:  c.WinMultiplier,
			SabotageChance: c.SabotageChance,
		},
		MinBet:           c.MinBet,
		MaxBet:           c.MaxBet,
		WaitTime:         seconds(c.WaitTimeSeconds),
		GlobalCooldown:   seconds(c.GlobalCooldownSeconds),
		CooldownNotice:   haunt.CooldownNotice(c.CooldownNotice),
		StartJoinMessage: c.StartJoinMessage,
		JoinMessage:      c.JoinMessage,
		AlertWhenLive:    c.AlertWhenLive,
		PayoutRetries:    c.PayoutRetries,
	}
}

func newGameRegistry(cfg *config.Config, src rng.Source) (*game.Registry, error) {
	sc := cfg.Games.Spin
	spinGame, err := spin.New(spin.Config{
		DeathEmotes:      strings.Fields(sc.DeathEmotes),
		LowTierEmotes:    strings.Fields(sc.LowTierEmotes),
		HighTierEmotes:   strings.Fields(sc.HighTierEmotes),
		LowTierSmallWin:  sc.LowTierSmallWin,
		LowTierBigWin:    sc.LowTierBigWin,
		HighTierSmallWin: sc.HighTierSmallWin,
		HighTierBigWin:   sc.HighTierBigWin,
		DefaultBet:       sc.DefaultBet,
		MinBet:           sc.MinBet,
		MaxBet:           sc.MaxBet,
		UserCooldown:     seconds(sc.UserCooldownSeconds),
		GlobalCooldown:   seconds(sc.GlobalCooldownSeconds),
		Output:           sc.Output,
		MinShowPoints:    sc.MinShowPoints,
		MessageWon:       sc.MessageWon,
		MessageLost:      sc.MessageLost,
		MessageJackpot:   sc.MessageJackpot,
	}, src)
	if err != nil {
		return nil, err
	}

	registry := game.NewRegistry()
	if err := registry.Register(spinGame); err != nil {
		return nil, err
	}
	fc := cfg.Games.Flip
	if err := registry.Register(flip.New(src, seconds(fc.UserCooldownSeconds), seconds(fc.GlobalCooldownSeconds))); err != nil {
		return nil, err
	}
	return registry, nil
}
