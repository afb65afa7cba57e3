package haunt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"chat-gamble-bot/internal/pkg/rng"
	"chat-gamble-bot/internal/pkg/timer"
)

// CooldownNotice controls how a join during the global cooldown is answered.
type CooldownNotice string

const (
	NoticeChat    CooldownNotice = "chat"
	NoticeWhisper CooldownNotice = "whisper"
	NoticeNone    CooldownNotice = "none"
)

// Default settings.
const (
	DefaultPayoutRate     = 2.0
	DefaultWinMultiplier  = 1.5
	DefaultSabotageChance = 5
	DefaultWaitTime       = 90 * time.Second
	DefaultGlobalCooldown = 900 * time.Second
	DefaultMinBet         = 1
	DefaultPayoutRetries  = 3

	DefaultStartJoinMessage = "{user} is going into the haunted house. Join them with /haunt <bones>!"
	DefaultJoinMessage      = "{user} is in!"
	DefaultAlertWhenLive    = "Brave souls wanted! Count Charles is terrorizing the village again. Type /haunt <bones> to storm his manor."
)

// Config holds the round settings.
type Config struct {
	Rules
	MinBet           int64
	MaxBet           int64 // 0 means no maximum
	WaitTime         time.Duration
	GlobalCooldown   time.Duration
	CooldownNotice   CooldownNotice
	StartJoinMessage string
	JoinMessage      string
	AlertWhenLive    string
	PayoutRetries    int
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		Rules: Rules{
			PayoutRate:     DefaultPayoutRate,
			WinMultiplier:  DefaultWinMultiplier,
			SabotageChance: DefaultSabotageChance,
		},
		MinBet:           DefaultMinBet,
		WaitTime:         DefaultWaitTime,
		GlobalCooldown:   DefaultGlobalCooldown,
		CooldownNotice:   NoticeChat,
		StartJoinMessage: DefaultStartJoinMessage,
		JoinMessage:      DefaultJoinMessage,
		AlertWhenLive:    DefaultAlertWhenLive,
		PayoutRetries:    DefaultPayoutRetries,
	}
}

// Dependencies are the collaborators a Scheduler needs. Balances and
// Announcer are required; the rest have defaults.
type Dependencies struct {
	Balances    BalanceStore
	Announcer   Announcer
	Clock       timer.Clock
	Random      rng.Source
	Journal     Journal
	Narratives  *Narratives
	RetryPolicy func() backoff.BackOff
	OnResolved  func(*RoundResult)
}

// JoinReceipt describes an accepted join.
type JoinReceipt struct {
	RoundID    string
	Stake      int64
	First      bool
	ResolvesAt time.Time
}

// Status is a point-in-time view for monitoring.
type Status struct {
	Phase             string     `json:"phase"`
	RoundID           string     `json:"round_id,omitempty"`
	Players           []string   `json:"players"`
	Pool              int64      `json:"pool"`
	ResolvesAt        *time.Time `json:"resolves_at,omitempty"`
	CooldownRemaining int64      `json:"cooldown_remaining_seconds"`
	LastCategory      string     `json:"last_category,omitempty"`
}

// Scheduler runs the round lifecycle: Idle -> Open -> Resolving ->
// Cooldown -> Idle. Joins and the drain are serialized by mu, so a join
// racing the resolution timer is either fully in the round or rejected
// before any balance is touched.
type Scheduler struct {
	cfg         Config
	balances    BalanceStore
	announcer   Announcer
	clock       timer.Clock
	random      rng.Source
	journal     Journal
	narratives  *Narratives
	retryPolicy func() backoff.BackOff
	onResolved  func(*RoundResult)

	registry *Registry

	mu            sync.Mutex
	running       bool
	phase         Phase
	ctx           context.Context
	cancel        context.CancelFunc
	resolveTimer  timer.Timer
	cooldownTimer timer.Timer
	lastResult    *RoundResult
	inflight      sync.WaitGroup
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(cfg Config, deps Dependencies) (*Scheduler, error) {
	if deps.Balances == nil {
		return nil, fmt.Errorf("haunt: balance store is required")
	}
	if deps.Announcer == nil {
		return nil, fmt.Errorf("haunt: announcer is required")
	}
	if cfg.WaitTime <= 0 {
		return nil, fmt.Errorf("haunt: wait time must be positive")
	}
	if cfg.MinBet < 1 {
		cfg.MinBet = DefaultMinBet
	}
	if cfg.CooldownNotice == "" {
		cfg.CooldownNotice = NoticeChat
	}

	s := &Scheduler{
		cfg:         cfg,
		balances:    deps.Balances,
		announcer:   deps.Announcer,
		clock:       deps.Clock,
		random:      deps.Random,
		journal:     deps.Journal,
		narratives:  deps.Narratives,
		retryPolicy: deps.RetryPolicy,
		onResolved:  deps.OnResolved,
		registry:    NewRegistry(),
		phase:       PhaseIdle,
	}
	if s.clock == nil {
		s.clock = timer.Real()
	}
	if s.random == nil {
		s.random = rng.Default()
	}
	if s.narratives == nil {
		s.narratives = DefaultNarratives()
	}
	if s.retryPolicy == nil {
		s.retryPolicy = exponentialRetry(cfg.PayoutRetries)
	}
	return s, nil
}

func exponentialRetry(retries int) func() backoff.BackOff {
	if retries < 0 {
		retries = 0
	}
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 200 * time.Millisecond
		b.MaxElapsedTime = 10 * time.Second
		return backoff.WithMaxRetries(b, uint64(retries))
	}
}

// Start refunds stakes left over from an interrupted round, then begins
// accepting joins. A cooldown window interrupted by Stop is re-armed.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if s.journal != nil {
		if err := s.recoverUnsettled(ctx); err != nil {
			return fmt.Errorf("failed to recover unsettled rounds: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	if s.phase == PhaseCooldown {
		if remaining := s.registry.CooldownRemaining(s.clock.Now(), s.cfg.GlobalCooldown); remaining > 0 {
			s.cooldownTimer = s.clock.AfterFunc(remaining, s.cooldownExpired)
		} else {
			s.phase = PhaseIdle
		}
	}
	log.Info().
		Dur("wait_time", s.cfg.WaitTime).
		Dur("global_cooldown", s.cfg.GlobalCooldown).
		Msg("Haunt scheduler started")
	return nil
}

// Stop cancels both timers, abandons an open round and waits for an
// in-flight resolution to finish. Abandoned stakes stay in the journal and
// are refunded by the next Start; without a journal they are refunded here.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	if s.resolveTimer != nil {
		s.resolveTimer.Stop()
		s.resolveTimer = nil
	}
	if s.cooldownTimer != nil {
		s.cooldownTimer.Stop()
		s.cooldownTimer = nil
	}
	roundID, abandoned := s.registry.Abandon()
	if roundID != "" {
		s.phase = PhaseIdle
		log.Warn().
			Str("round_id", roundID).
			Int("players", len(abandoned)).
			Msg("Haunt scheduler stopped with an open round")
	}
	ctx, cancel := s.ctx, s.cancel
	s.mu.Unlock()

	if s.journal == nil {
		for _, e := range abandoned {
			s.refund(ctx, e.Player, e.Stake)
		}
	}

	s.inflight.Wait()
	if cancel != nil {
		cancel()
	}
	log.Info().Msg("Haunt scheduler stopped")
}

// Phase returns the current lifecycle state.
func (s *Scheduler) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// LastResult returns the most recently resolved round, if any.
func (s *Scheduler) LastResult() *RoundResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// Status returns a monitoring snapshot.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Phase: s.phase.String(), Players: []string{}}
	if info, ok := s.registry.Snapshot(); ok {
		st.RoundID = info.ID
		st.Players = info.Players
		st.Pool = info.Pool
		resolvesAt := info.ResolvesAt
		st.ResolvesAt = &resolvesAt
	}
	remaining := s.registry.CooldownRemaining(s.clock.Now(), s.cfg.GlobalCooldown)
	st.CooldownRemaining = int64(remaining.Seconds())
	if s.lastResult != nil {
		st.LastCategory = s.lastResult.Category.String()
	}
	return st
}

// OnJoinCommand is the chat entry point for /haunt. Errors are reported
// to the player and never propagate.
func (s *Scheduler) OnJoinCommand(ctx context.Context, p Player, raw string) {
	_, err := s.Join(ctx, p, raw)
	if err == nil {
		return
	}

	log.Debug().
		Err(err).
		Int64("user_id", p.ID).
		Str("raw", raw).
		Msg("Haunt join rejected")

	msg := PlayerMessage(p, err, s.cfg.MinBet, s.cfg.MaxBet)
	switch {
	case errors.Is(err, ErrRoundInCooldown):
		switch s.cfg.CooldownNotice {
		case NoticeChat:
			s.announcer.Announce(msg)
		case NoticeWhisper:
			s.announcer.Whisper(p, msg)
		}
	case errors.Is(err, ErrNotRunning), errors.Is(err, ErrBalanceUnavailable):
		log.Error().Err(err).Int64("user_id", p.ID).Msg("Haunt join failed")
		s.announcer.Whisper(p, msg)
	default:
		s.announcer.Whisper(p, msg)
	}
}

// Join validates and records a stake. The first stake of a round opens it
// and arms the resolution timer.
func (s *Scheduler) Join(ctx context.Context, p Player, raw string) (*JoinReceipt, error) {
	receipt, live, err := s.join(ctx, p, raw)
	if live && s.cfg.AlertWhenLive != "" {
		s.announcer.Announce(s.cfg.AlertWhenLive)
	}
	if err != nil {
		return nil, err
	}

	template := s.cfg.JoinMessage
	if receipt.First {
		template = s.cfg.StartJoinMessage
	}
	if template != "" {
		s.announcer.Announce(render(template, map[string]string{
			"user": p.Name,
			"bet":  strconv.FormatInt(receipt.Stake, 10),
		}))
	}
	return receipt, nil
}

// join reports live when it ended a cooldown whose live-again timer had
// not fired yet, so the caller can make the announcement the timer would.
func (s *Scheduler) join(ctx context.Context, p Player, raw string) (receipt *JoinReceipt, live bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, false, ErrNotRunning
	}

	now := s.clock.Now()
	switch s.phase {
	case PhaseResolving:
		return nil, false, ErrRoundResolving
	case PhaseCooldown, PhaseIdle:
		if remaining := s.registry.CooldownRemaining(now, s.cfg.GlobalCooldown); remaining > 0 {
			return nil, false, &CooldownError{Remaining: remaining}
		}
		if s.phase == PhaseCooldown {
			// window elapsed before the live-again timer fired
			if s.cooldownTimer != nil {
				s.cooldownTimer.Stop()
				s.cooldownTimer = nil
			}
			s.phase = PhaseIdle
			live = true
		}
	}

	if s.registry.Has(p.ID) {
		return nil, live, ErrDuplicateEntry
	}

	balance, err := s.balances.GetBalance(ctx, p.ID)
	if err != nil {
		return nil, live, fmt.Errorf("%w: %v", ErrBalanceUnavailable, err)
	}

	stake, err := ParseStake(raw, balance)
	if err != nil {
		return nil, live, err
	}
	if stake < s.cfg.MinBet {
		return nil, live, fmt.Errorf("%w: minimum is %d", ErrBetTooLow, s.cfg.MinBet)
	}
	if s.cfg.MaxBet > 0 && stake > s.cfg.MaxBet {
		return nil, live, fmt.Errorf("%w: maximum is %d", ErrBetTooHigh, s.cfg.MaxBet)
	}
	if stake > balance {
		return nil, live, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, balance, stake)
	}

	if err := s.balances.AdjustBalance(ctx, p.ID, -stake); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return nil, live, err
		}
		return nil, live, fmt.Errorf("%w: %v", ErrBalanceUnavailable, err)
	}

	info, opened, err := s.registry.TryOpen(now, s.cfg.GlobalCooldown, s.cfg.WaitTime)
	if err != nil {
		s.refund(ctx, p, stake)
		return nil, live, err
	}

	entry := Entry{Player: p, Stake: stake, JoinedAt: now}
	if err := s.registry.AddEntry(entry); err != nil {
		s.refund(ctx, p, stake)
		return nil, live, err
	}

	if opened {
		s.phase = PhaseOpen
		s.resolveTimer = s.clock.AfterFunc(s.cfg.WaitTime, s.resolveRound)
	}

	if s.journal != nil {
		if err := s.journal.RecordEntry(ctx, info.ID, entry); err != nil {
			log.Warn().
				Err(err).
				Str("round_id", info.ID).
				Int64("user_id", p.ID).
				Msg("Failed to journal haunt entry")
		}
	}

	log.Info().
		Str("round_id", info.ID).
		Int64("user_id", p.ID).
		Str("username", p.Name).
		Int64("stake", stake).
		Bool("first", opened).
		Msg("Player joined haunt")

	return &JoinReceipt{
		RoundID:    info.ID,
		Stake:      stake,
		First:      opened,
		ResolvesAt: info.ResolvesAt,
	}, live, nil
}

// refund returns a stake whose entry could not be recorded.
func (s *Scheduler) refund(ctx context.Context, p Player, stake int64) {
	if err := s.credit(ctx, p.ID, stake); err != nil {
		log.Error().
			Err(err).
			Int64("user_id", p.ID).
			Int64("stake", stake).
			Msg("Failed to refund haunt stake")
	}
}

// resolveRound is the resolution timer callback.
func (s *Scheduler) resolveRound() {
	s.mu.Lock()
	if !s.running || s.phase != PhaseOpen {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseResolving
	s.resolveTimer = nil
	s.inflight.Add(1)
	defer s.inflight.Done()
	ctx := context.WithoutCancel(s.ctx)
	roundID, entries, _ := s.registry.Drain(s.clock.Now())
	s.mu.Unlock()

	result := Resolve(entries, s.random, s.cfg.Rules, s.narratives)
	result.RoundID = roundID

	failed := s.applyPayouts(ctx, result)
	result.Unpaid = failed

	if s.journal != nil && roundID != "" {
		if err := s.journal.SettleRound(ctx, roundID); err != nil {
			log.Error().Err(err).Str("round_id", roundID).Msg("Failed to settle haunt journal")
		}
	}

	for _, line := range result.Narrative {
		if line != "" {
			s.announcer.Announce(line)
		}
	}
	for _, p := range failed {
		s.announcer.Announce(fmt.Sprintf("%s's winnings of %d could not be paid out yet. An admin has been notified.", p.Player.Name, p.Amount))
	}

	s.mu.Lock()
	s.registry.MarkResolved(s.clock.Now())
	s.lastResult = result
	if s.running {
		s.phase = PhaseCooldown
		s.cooldownTimer = s.clock.AfterFunc(s.cfg.GlobalCooldown, s.cooldownExpired)
	} else {
		s.phase = PhaseIdle
	}
	s.mu.Unlock()

	log.Info().
		Str("round_id", roundID).
		Str("category", result.Category.String()).
		Int("players", len(result.Payouts)).
		Int64("staked", result.TotalStaked).
		Int64("paid", result.TotalPaid).
		Int("failed_payouts", len(failed)).
		Msg("Haunt round resolved")

	if s.onResolved != nil {
		s.onResolved(result)
	}
}

// applyPayouts credits every winning payout independently and returns the
// ones that still failed after retrying.
func (s *Scheduler) applyPayouts(ctx context.Context, result *RoundResult) []Payout {
	var failed []Payout
	for _, p := range result.Payouts {
		if p.Amount <= 0 {
			continue
		}
		if err := s.credit(ctx, p.Player.ID, p.Amount); err != nil {
			log.Error().
				Err(err).
				Str("round_id", result.RoundID).
				Int64("user_id", p.Player.ID).
				Int64("amount", p.Amount).
				Msg("Haunt payout failed")
			failed = append(failed, p)
		}
	}
	return failed
}

func (s *Scheduler) credit(ctx context.Context, playerID, amount int64) error {
	op := func() error {
		return s.balances.AdjustBalance(ctx, playerID, amount)
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().
			Err(err).
			Int64("user_id", playerID).
			Int64("amount", amount).
			Dur("retry_in", wait).
			Msg("Retrying haunt credit")
	}
	return backoff.RetryNotify(op, backoff.WithContext(s.retryPolicy(), ctx), notify)
}

// cooldownExpired is the live-again timer callback.
func (s *Scheduler) cooldownExpired() {
	s.mu.Lock()
	if !s.running || s.phase != PhaseCooldown {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseIdle
	s.cooldownTimer = nil
	s.mu.Unlock()

	if s.cfg.AlertWhenLive != "" {
		s.announcer.Announce(s.cfg.AlertWhenLive)
	}
}

// recoverUnsettled refunds journaled stakes of rounds that never resolved.
// A round is settled only once all of its refunds succeed.
func (s *Scheduler) recoverUnsettled(ctx context.Context) error {
	pending, err := s.journal.Unsettled(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	ok := make(map[string]bool)
	var order []string
	for _, je := range pending {
		if _, seen := ok[je.RoundID]; !seen {
			ok[je.RoundID] = true
			order = append(order, je.RoundID)
		}
		if err := s.credit(ctx, je.Player.ID, je.Stake); err != nil {
			ok[je.RoundID] = false
			log.Error().
				Err(err).
				Str("round_id", je.RoundID).
				Int64("user_id", je.Player.ID).
				Int64("stake", je.Stake).
				Msg("Failed to refund interrupted haunt stake")
			continue
		}
		log.Info().
			Str("round_id", je.RoundID).
			Int64("user_id", je.Player.ID).
			Int64("stake", je.Stake).
			Msg("Refunded interrupted haunt stake")
	}

	for _, roundID := range order {
		if !ok[roundID] {
			continue
		}
		if err := s.journal.SettleRound(ctx, roundID); err != nil {
			log.Error().Err(err).Str("round_id", roundID).Msg("Failed to settle recovered haunt round")
		}
	}
	return nil
}
