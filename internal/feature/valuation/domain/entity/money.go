package entity

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"bist_valuation/internal/feature/valuation/domain"
)

// Currency is the closed set of currencies a Worth can be tagged with.
type Currency string

const (
	TRY Currency = "TRY"
	USD Currency = "USD"
)

// Currencies lists every supported currency in display order.
var Currencies = []Currency{TRY, USD}

// ParseCurrency accepts "TRY", "TL" and "USD" in any case. "TL" is an alias of TRY.
func ParseCurrency(raw string) (Currency, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TRY", "TL":
		return TRY, nil
	case "USD":
		return USD, nil
	}
	return "", domain.NewValidationError("currency", raw, domain.ErrCurrency)
}

func (c Currency) String() string { return string(c) }

// Price is a non-negative decimal magnitude.
type Price struct {
	value decimal.Decimal
}

// NewPrice rejects negative magnitudes.
func NewPrice(v decimal.Decimal) (Price, error) {
	if v.IsNegative() {
		return Price{}, domain.NewValidationError("price", v.String(), domain.ErrNegativePrice)
	}
	return Price{value: v}, nil
}

// Decimal returns the underlying magnitude.
func (p Price) Decimal() decimal.Decimal { return p.value }

// Equal reports whether both prices have the same magnitude.
func (p Price) Equal(o Price) bool { return p.value.Equal(o.value) }

func (p Price) String() string { return p.value.String() }

// Worth is a monetary amount tagged with an explicit currency.
//
// Financial statement line items may be negative (losses, costs), so the
// amount of a Worth is not restricted to Price's non-negative range.
type Worth struct {
	amount   decimal.Decimal
	currency Currency
}

// NewWorth builds a Worth. The currency must be one of Currencies.
func NewWorth(amount decimal.Decimal, currency Currency) (Worth, error) {
	if _, err := ParseCurrency(string(currency)); err != nil {
		return Worth{}, err
	}
	return Worth{amount: amount, currency: currency}, nil
}

// NewPriceWorth builds a Worth whose amount must be a valid Price.
func NewPriceWorth(amount decimal.Decimal, currency Currency) (Worth, error) {
	if _, err := NewPrice(amount); err != nil {
		return Worth{}, err
	}
	return NewWorth(amount, currency)
}

func (w Worth) Amount() decimal.Decimal { return w.amount }

func (w Worth) Currency() Currency { return w.currency }

// Equal reports whether amount and currency match.
func (w Worth) Equal(o Worth) bool {
	return w.currency == o.currency && w.amount.Equal(o.amount)
}

func (w Worth) String() string { return w.amount.String() + " " + string(w.currency) }

// PublicOwnershipRatio is the free-float percentage of a company.
type PublicOwnershipRatio float64

// NewPublicOwnershipRatio accepts values in [0, 100].
func NewPublicOwnershipRatio(v float64) (PublicOwnershipRatio, error) {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return 0, domain.NewValidationError("publicOwnershipRatio",
			strconv.FormatFloat(v, 'f', -1, 64), domain.ErrOwnershipRange)
	}
	return PublicOwnershipRatio(v), nil
}

func (r PublicOwnershipRatio) Float64() float64 { return float64(r) }
