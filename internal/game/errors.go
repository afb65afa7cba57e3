package game

import "errors"

// Bet validation errors shared by the instant games.
var (
	ErrInvalidBet          = errors.New("bet amount must be positive")
	ErrBetTooLow           = errors.New("bet below minimum")
	ErrBetTooHigh          = errors.New("bet exceeds maximum allowed")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// BalanceParam reads ParamBalance from params.
func BalanceParam(params map[string]any) (int64, bool) {
	b, ok := params[ParamBalance].(int64)
	return b, ok
}

// UserParam reads ParamUser from params.
func UserParam(params map[string]any) string {
	u, _ := params[ParamUser].(string)
	return u
}
