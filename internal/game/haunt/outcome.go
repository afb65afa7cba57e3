package haunt

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"chat-gamble-bot/internal/pkg/rng"
)

const (
	// SabotageChanceScale is the denominator of Rules.SabotageChance:
	// the setting is expressed in hundredths of a percent.
	SabotageChanceScale = 10000

	// GroupedNarrativeThreshold is the pool size from which a mixed round
	// is narrated with grouped lines instead of one line per player.
	GroupedNarrativeThreshold = 6
)

// Rules are the payout parameters of a round.
type Rules struct {
	PayoutRate     float64 // jackpot multiplier, every player
	WinMultiplier  float64 // multiplier for winners of a mixed round
	SabotageChance int     // hundredths of a percent, 0-10000
}

// Payout is one player's settlement. Amount is credited back in full; a
// losing entry has Amount 0 and the stake is forfeited.
type Payout struct {
	Player Player
	Stake  int64
	Amount int64
	Won    bool
}

// Net returns the player's change in balance over the whole round.
func (p Payout) Net() int64 { return p.Amount - p.Stake }

// RoundResult is the settled outcome of a round.
type RoundResult struct {
	RoundID     string
	Category    Category
	Payouts     []Payout // join order
	Saboteur    *Player
	Narrative   []string
	TotalStaked int64
	TotalPaid   int64
	Unpaid      []Payout // payouts the balance store still rejected after retrying
}

// Resolve settles a drained pool. Entries must be in join order.
//
// Draw order: one Float64 for the sabotage roll (none when the chance is
// zero), then either one Float64
// to pick the saboteur or one Bool per player in join order. Narrative
// picks always come after every payout-relevant draw.
func Resolve(entries []Entry, src rng.Source, rules Rules, narratives *Narratives) *RoundResult {
	if narratives == nil {
		narratives = DefaultNarratives()
	}

	res := &RoundResult{Category: CategoryMixed}
	if len(entries) == 0 {
		return res
	}

	var pooled int64
	for _, e := range entries {
		pooled += e.Stake
	}
	res.TotalStaked = pooled

	p := float64(rules.SabotageChance) / SabotageChanceScale
	if rng.Chance(src, p) {
		res.Category = CategorySabotage
		idx := rng.Pick(src, len(entries))
		saboteur := entries[idx].Player
		res.Saboteur = &saboteur
		res.Payouts = make([]Payout, len(entries))
		for i, e := range entries {
			res.Payouts[i] = Payout{Player: e.Player, Stake: e.Stake}
		}
		res.Payouts[idx].Amount = pooled
		res.Payouts[idx].Won = true
		res.TotalPaid = pooled
		res.Narrative = sabotageNarrative(src, narratives, saboteur, pooled)
		return res
	}

	wins := make([]bool, len(entries))
	allWin, allLose := true, true
	for i := range entries {
		wins[i] = src.Bool()
		if wins[i] {
			allLose = false
		} else {
			allWin = false
		}
	}

	switch {
	case len(entries) == 1:
		res.Category = CategoryMixed
	case allWin:
		res.Category = CategoryJackpot
	case allLose:
		res.Category = CategoryWipeout
	default:
		res.Category = CategoryMixed
	}

	res.Payouts = make([]Payout, len(entries))
	for i, e := range entries {
		po := Payout{Player: e.Player, Stake: e.Stake}
		switch res.Category {
		case CategoryJackpot:
			po.Won = true
			po.Amount = multiply(e.Stake, rules.PayoutRate)
		case CategoryMixed:
			if wins[i] {
				po.Won = true
				po.Amount = multiply(e.Stake, rules.WinMultiplier)
			}
		}
		res.TotalPaid += po.Amount
		res.Payouts[i] = po
	}

	switch res.Category {
	case CategoryJackpot:
		res.Narrative = jackpotNarrative(src, narratives, res.Payouts)
	case CategoryWipeout:
		res.Narrative = wipeNarrative(src, narratives, res.Payouts)
	default:
		if len(res.Payouts) >= GroupedNarrativeThreshold {
			res.Narrative = groupedNarrative(src, narratives, res.Payouts)
		} else {
			res.Narrative = perPlayerNarrative(src, narratives, res.Payouts)
		}
	}
	return res
}

func multiply(stake int64, rate float64) int64 {
	return decimal.NewFromInt(stake).Mul(decimal.NewFromFloat(rate)).Round(0).IntPart()
}

func sabotageNarrative(src rng.Source, n *Narratives, saboteur Player, pooled int64) []string {
	line := render(pickLine(src, n.Sabotage), map[string]string{"player": saboteur.Name})
	return []string{line, fmt.Sprintf("%s +(%d)", saboteur.Name, pooled)}
}

func jackpotNarrative(src rng.Source, n *Narratives, payouts []Payout) []string {
	parts := make([]string, 0, len(payouts))
	for _, p := range payouts {
		parts = append(parts, fmt.Sprintf("%s (%d)", p.Player.Name, p.Amount))
	}
	return []string{pickLine(src, n.Jackpot), strings.Join(parts, " ")}
}

func wipeNarrative(src rng.Source, n *Narratives, payouts []Payout) []string {
	parts := make([]string, 0, len(payouts))
	for _, p := range payouts {
		parts = append(parts, fmt.Sprintf("%s -(%d)", p.Player.Name, p.Stake))
	}
	return []string{pickLine(src, n.Wipe), strings.Join(parts, " ")}
}

func perPlayerNarrative(src rng.Source, n *Narratives, payouts []Payout) []string {
	lines := make([]string, 0, len(payouts))
	for _, p := range payouts {
		if p.Won {
			lines = append(lines, fmt.Sprintf("%s%s +(%d)", p.Player.Name, pickLine(src, n.Win), p.Amount))
		} else {
			lines = append(lines, fmt.Sprintf("%s%s -(%d)", p.Player.Name, pickLine(src, n.Loss), p.Stake))
		}
	}
	return lines
}

func groupedNarrative(src rng.Source, n *Narratives, payouts []Payout) []string {
	var winners, losers []string
	var winParts, lossParts []string
	for _, p := range payouts {
		if p.Won {
			winners = append(winners, p.Player.Name)
			winParts = append(winParts, fmt.Sprintf("%s (%d)", p.Player.Name, p.Amount))
		} else {
			losers = append(losers, p.Player.Name)
			lossParts = append(lossParts, fmt.Sprintf("%s -(%d)", p.Player.Name, p.Stake))
		}
	}

	var lines []string
	if len(winners) > 0 {
		lines = append(lines,
			groupFlavor(winners, pickLine(src, n.Win)),
			"Winners: "+strings.Join(winParts, " "),
		)
	}
	if len(losers) > 0 {
		for _, group := range splitGroups(losers) {
			lines = append(lines, groupFlavor(group, pickLine(src, n.Loss)))
		}
		lines = append(lines, "Losers: "+strings.Join(lossParts, " "))
	}
	return lines
}
