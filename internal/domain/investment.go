package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The JSON API serves amounts and values as plain numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// InvestmentType identifies how an investment is priced.
type InvestmentType string

const (
	TypeGold   InvestmentType = "GOLD"
	TypeSilver InvestmentType = "SILVER"
	TypeBTC    InvestmentType = "BTC"
	TypeETH    InvestmentType = "ETH"
	TypeLTC    InvestmentType = "LTC"
	TypeSOL    InvestmentType = "SOL"
	TypeXRP    InvestmentType = "XRP"
	TypeCustom InvestmentType = "CUSTOM"
)

// AllTypes lists every supported investment type.
var AllTypes = []InvestmentType{
	TypeGold, TypeSilver, TypeBTC, TypeETH, TypeLTC, TypeSOL, TypeXRP, TypeCustom,
}

// ParseType parses a case-insensitive investment type string.
func ParseType(s string) (InvestmentType, error) {
	t := InvestmentType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown investment type %q", s)
}

// IsMetal reports whether the type is priced per troy ounce.
func (t InvestmentType) IsMetal() bool {
	return t == TypeGold || t == TypeSilver
}

// IsCrypto reports whether the type is priced via the crypto provider.
func (t InvestmentType) IsCrypto() bool {
	switch t {
	case TypeBTC, TypeETH, TypeLTC, TypeSOL, TypeXRP:
		return true
	}
	return false
}

// Snapshot is one immutable recorded valuation of an investment.
// History for an investment name is the ordered set of all snapshots ever
// appended under that name for one user; the snapshot with the maximum
// timestamp is the investment's current state.
type Snapshot struct {
	InvestmentName string          `json:"investmentName"`
	InvestmentType InvestmentType  `json:"investmentType"`
	Amount         decimal.Decimal `json:"amount"`
	Value          decimal.Decimal `json:"value"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Delimiter is the ledger record separator. The persisted layout never
// escapes it, so investment names must not contain it.
const Delimiter = ","

// Validate checks the user-supplied fields of a snapshot before it is
// recorded. The timestamp is server-assigned and not checked here.
func (s Snapshot) Validate() error {
	name := strings.TrimSpace(s.InvestmentName)
	if name == "" {
		return fmt.Errorf("investment name is required")
	}
	if strings.Contains(name, Delimiter) {
		return fmt.Errorf("investment name must not contain %q", Delimiter)
	}
	if _, err := ParseType(string(s.InvestmentType)); err != nil {
		return err
	}
	if !s.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	if s.Value.IsNegative() {
		return fmt.Errorf("value must not be negative")
	}
	return nil
}
