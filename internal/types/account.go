package types

import "github.com/shopspring/decimal"

// AccountMode selects which balance trades are charged against.
type AccountMode string

const (
	AccountModeDemo AccountMode = "demo"
	AccountModeReal AccountMode = "real"
)

// Balance holds both account balances reported by the remote API.
type Balance struct {
	// Real is the live-money balance
	Real decimal.Decimal `json:"real" yaml:"real"`
	// Demo is the practice balance
	Demo decimal.Decimal `json:"demo" yaml:"demo"`
}

// For returns the balance of the given account mode.
func (b Balance) For(mode AccountMode) decimal.Decimal {
	if mode == AccountModeReal {
		return b.Real
	}

	return b.Demo
}
