package haunt

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned by the round engine.
var (
	ErrInvalidAmount       = errors.New("invalid bet amount")
	ErrBetTooLow           = errors.New("bet is below the minimum")
	ErrBetTooHigh          = errors.New("bet exceeds the maximum")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRoundInCooldown     = errors.New("round is in cooldown")
	ErrDuplicateEntry      = errors.New("player already joined this round")
	ErrRoundResolving      = errors.New("round is resolving")
	ErrNoOpenRound         = errors.New("no open round")
	ErrNotRunning          = errors.New("round scheduler is not running")
	ErrBalanceUnavailable  = errors.New("balance store unavailable")
)

// CooldownError reports how long until the next round may open.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: %s remaining", ErrRoundInCooldown, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrRoundInCooldown }

// formatRemaining renders a duration as MM:SS, rounding partial seconds up.
func formatRemaining(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// PlayerMessage turns a join error into the text shown to the player.
func PlayerMessage(p Player, err error, minBet, maxBet int64) string {
	var cd *CooldownError
	switch {
	case errors.As(err, &cd):
		return fmt.Sprintf("It's still light out! You need to wait %s to enter the house again.", formatRemaining(cd.Remaining))
	case errors.Is(err, ErrRoundInCooldown):
		return "It's still light out! Wait a little before entering the house again."
	case errors.Is(err, ErrInvalidAmount):
		return fmt.Sprintf("%s: You need to bet some bones to enter the house.", p.Name)
	case errors.Is(err, ErrBetTooLow):
		return fmt.Sprintf("You have to bet at least %d bones to enter the house.", minBet)
	case errors.Is(err, ErrBetTooHigh):
		return fmt.Sprintf("You can bet at most %d bones on the haunted house.", maxBet)
	case errors.Is(err, ErrInsufficientBalance):
		return "You don't have enough bones for that bet."
	case errors.Is(err, ErrDuplicateEntry):
		return "You're already inside the house, hang tight!"
	case errors.Is(err, ErrRoundResolving):
		return "The doors have already shut behind this group. Try the next round."
	default:
		return "Something went wrong entering the house, try again later."
	}
}
