// Package spin implements the emote slot machine.
package spin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"chat-gamble-bot/internal/game"
	"chat-gamble-bot/internal/pkg/rng"
)

// Output modes.
const (
	OutputChat      = "chat"
	OutputWhisper   = "whisper"
	OutputThreshold = "threshold"
)

// Reel weights per tier.
const (
	deathWeight = 2
	lowWeight   = 3
	highWeight  = 1
)

// Tier classifies an emote.
type Tier int

const (
	TierDeath Tier = iota
	TierLow
	TierHigh
)

// Kind selects the result message.
type Kind string

const (
	KindWon     Kind = "won"
	KindLost    Kind = "lost"
	KindJackpot Kind = "jackpot"
)

// Config holds the slot machine settings. Win settings are percentages of
// the bet returned.
type Config struct {
	DeathEmotes      []string
	LowTierEmotes    []string
	HighTierEmotes   []string
	LowTierSmallWin  int
	LowTierBigWin    int
	HighTierSmallWin int
	HighTierBigWin   int
	DefaultBet       int64
	MinBet           int64
	MaxBet           int64
	UserCooldown     time.Duration
	GlobalCooldown   time.Duration
	Output           string
	MinShowPoints    int64
	MessageWon       string
	MessageLost      string
	MessageJackpot   string
}

// Pull is one spin of the three reels.
type Pull struct {
	Emotes   [3]string
	Multiple float64
	Kind     Kind
}

// SpinGame implements game.Game.
type SpinGame struct {
	cfg  Config
	src  rng.Source
	reel []string
	tier map[string]Tier
}

var _ game.Game = (*SpinGame)(nil)

// New builds a SpinGame. At least one low and one high tier emote are required.
func New(cfg Config, src rng.Source) (*SpinGame, error) {
	if len(cfg.LowTierEmotes) == 0 || len(cfg.HighTierEmotes) == 0 {
		return nil, errors.New("spin needs low and high tier emotes")
	}
	if src == nil {
		src = rng.Default()
	}
	if cfg.MinBet < 1 {
		cfg.MinBet = 1
	}
	if cfg.Output == "" {
		cfg.Output = OutputChat
	}

	g := &SpinGame{cfg: cfg, src: src, tier: make(map[string]Tier)}
	// first listing wins when an emote appears in several tiers
	add := func(emotes []string, t Tier, weight int) {
		for _, e := range emotes {
			if _, seen := g.tier[e]; !seen {
				g.tier[e] = t
			}
			for range weight {
				g.reel = append(g.reel, e)
			}
		}
	}
	add(cfg.DeathEmotes, TierDeath, deathWeight)
	add(cfg.LowTierEmotes, TierLow, lowWeight)
	add(cfg.HighTierEmotes, TierHigh, highWeight)
	return g, nil
}

// Name returns the game's display name.
func (g *SpinGame) Name() string { return "Slot Machine" }

// Command returns the command that triggers this game.
func (g *SpinGame) Command() string { return "spin" }

// Description returns a brief description of the game.
func (g *SpinGame) Description() string {
	return "Pull the lever: pairs and triples pay, three skulls take it all"
}

// MaxBet returns the maximum allowed bet.
func (g *SpinGame) MaxBet() int64 { return g.cfg.MaxBet }

// MinBet returns the minimum bet.
func (g *SpinGame) MinBet() int64 { return g.cfg.MinBet }

// DefaultBet is used when /spin has no amount.
func (g *SpinGame) DefaultBet() int64 { return g.cfg.DefaultBet }

// Cooldown returns the per-user cooldown.
func (g *SpinGame) Cooldown() time.Duration { return g.cfg.UserCooldown }

// GlobalCooldown returns the cooldown shared by everyone.
func (g *SpinGame) GlobalCooldown() time.Duration { return g.cfg.GlobalCooldown }

// ValidateBet checks the bet against the limits and, when params carries
// one, the player's balance.
func (g *SpinGame) ValidateBet(bet int64, params map[string]any) error {
	if bet <= 0 {
		return game.ErrInvalidBet
	}
	if bet < g.cfg.MinBet {
		return fmt.Errorf("%w: you have to bet at least %d", game.ErrBetTooLow, g.cfg.MinBet)
	}
	if g.cfg.MaxBet > 0 && bet > g.cfg.MaxBet {
		return fmt.Errorf("%w: max bet is %d", game.ErrBetTooHigh, g.cfg.MaxBet)
	}
	if balance, ok := game.BalanceParam(params); ok && bet > balance {
		return fmt.Errorf("%w: you don't have enough bones to spin for %d", game.ErrInsufficientBalance, bet)
	}
	return nil
}

// Play spins the reels. Payout is the net change to the player's balance.
func (g *SpinGame) Play(_ context.Context, userID int64, bet int64, params map[string]any) (*game.GameResult, error) {
	if err := g.ValidateBet(bet, params); err != nil {
		return nil, err
	}

	p := g.pull()
	net := Net(bet, p.Multiple)
	kind := resultKind(p.Kind, net)
	balance, _ := game.BalanceParam(params)

	return &game.GameResult{
		Payout:      net,
		Description: g.render(p.Emotes, kind, bet, net, game.UserParam(params), balance+net),
		Whisper:     g.whisper(net),
		Details: map[string]any{
			"emotes":   p.Emotes,
			"multiple": p.Multiple,
			"kind":     string(kind),
			"user_id":  userID,
		},
	}, nil
}

func (g *SpinGame) pull() Pull {
	var p Pull
	for i := range p.Emotes {
		p.Emotes[i] = g.reel[rng.Pick(g.src, len(g.reel))]
	}
	p.Multiple, p.Kind = g.classify(p.Emotes)
	return p
}

// classify returns the bet multiple and message kind for a set of reels.
func (g *SpinGame) classify(reels [3]string) (float64, Kind) {
	a, b, c := reels[0], reels[1], reels[2]

	if a == b && b == c {
		switch g.tier[a] {
		case TierDeath:
			return 0, KindLost
		case TierLow:
			return pct(g.cfg.LowTierBigWin), KindWon
		default:
			return pct(g.cfg.HighTierBigWin), KindJackpot
		}
	}

	pair := ""
	switch {
	case a == b, a == c:
		pair = a
	case b == c:
		pair = b
	}
	if pair == "" {
		return 0.5, KindWon
	}
	switch g.tier[pair] {
	case TierDeath:
		return 0.75, KindWon
	case TierLow:
		return pct(g.cfg.LowTierSmallWin), KindWon
	default:
		return pct(g.cfg.HighTierSmallWin), KindWon
	}
}

func pct(p int) float64 { return float64(p) / 100 }

// Net is the balance change for a bet returning multiple times the stake.
func Net(bet int64, multiple float64) int64 {
	return decimal.NewFromInt(bet).Mul(decimal.NewFromFloat(multiple)).Round(0).IntPart() - bet
}

// resultKind downgrades a win that still cost the player bones to a loss.
func resultKind(k Kind, net int64) Kind {
	if k == KindWon && net < 0 {
		return KindLost
	}
	return k
}

func (g *SpinGame) render(emotes [3]string, kind Kind, bet, net int64, user string, points int64) string {
	tmpl := g.cfg.MessageWon
	switch kind {
	case KindLost:
		tmpl = g.cfg.MessageLost
	case KindJackpot:
		tmpl = g.cfg.MessageJackpot
	}

	return strings.NewReplacer(
		"{emotes}", strings.Join(emotes[:], " ▬ "),
		"{result}", strconv.FormatInt(net, 10),
		"{user}", user,
		"{bet}", strconv.FormatInt(bet, 10),
		"{points}", strconv.FormatInt(points, 10),
	).Replace(tmpl)
}

func (g *SpinGame) whisper(net int64) bool {
	switch g.cfg.Output {
	case OutputWhisper:
		return true
	case OutputThreshold:
		return abs(net) < g.cfg.MinShowPoints
	default:
		return false
	}
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
