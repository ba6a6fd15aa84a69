package entity

import (
	"github.com/shopspring/decimal"

	"bist_valuation/internal/feature/valuation/domain"
)

// CompanyFinancialRatios holds the valuation multiples of a company.
// A ratio is left invalid when its inputs were insufficient.
type CompanyFinancialRatios struct {
	PriceEarnings decimal.NullDecimal
	PriceToBook   decimal.NullDecimal
	EvEbitda      decimal.NullDecimal
	AsOfTerm      string // balance term the ratios were derived from, e.g. "9/2024"
}

// CompanyValuations is the price, market value and capital of a company in a
// single currency.
type CompanyValuations struct {
	LastPrice   Worth
	MarketValue Worth
	Capital     Worth
	Currency    Currency
}

// NewCompanyValuations validates the three magnitudes as prices and tags them
// with currency.
func NewCompanyValuations(lastPrice, marketValue, capital decimal.Decimal, currency Currency) (CompanyValuations, error) {
	lp, err := NewPriceWorth(lastPrice, currency)
	if err != nil {
		return CompanyValuations{}, err
	}
	mv, err := NewPriceWorth(marketValue, currency)
	if err != nil {
		return CompanyValuations{}, err
	}
	cp, err := NewPriceWorth(capital, currency)
	if err != nil {
		return CompanyValuations{}, err
	}
	return CompanyValuations{LastPrice: lp, MarketValue: mv, Capital: cp, Currency: currency}, nil
}

// Company is a listed company with its ratios and valuations.
// Valuations holds at most one entry per currency.
type Company struct {
	Symbol               Symbol
	Name                 Name
	PublicOwnershipRatio PublicOwnershipRatio
	Ratios               CompanyFinancialRatios
	Valuations           []CompanyValuations
}

// NewCompany validates that every valuation is internally consistent and that
// no currency appears twice.
func NewCompany(symbol Symbol, name Name, ownership PublicOwnershipRatio,
	ratios CompanyFinancialRatios, valuations ...CompanyValuations) (Company, error) {
	if symbol == "" {
		return Company{}, domain.NewValidationError("symbol", "", domain.ErrCompanyCode)
	}
	if name == "" {
		return Company{}, domain.NewValidationError("name", "", domain.ErrName)
	}
	seen := make(map[Currency]struct{}, len(valuations))
	vs := make([]CompanyValuations, 0, len(valuations))
	for _, v := range valuations {
		if v.LastPrice.Currency() != v.Currency || v.MarketValue.Currency() != v.Currency || v.Capital.Currency() != v.Currency {
			return Company{}, domain.NewValidationError("valuations", string(v.Currency), domain.ErrMixedCurrency)
		}
		if _, dup := seen[v.Currency]; dup {
			return Company{}, domain.NewValidationError("valuations", string(v.Currency), domain.ErrMixedCurrency)
		}
		seen[v.Currency] = struct{}{}
		vs = append(vs, v)
	}
	return Company{
		Symbol:               symbol,
		Name:                 name,
		PublicOwnershipRatio: ownership,
		Ratios:               ratios,
		Valuations:           vs,
	}, nil
}

// ValuationsIn returns the valuations expressed in currency, if present.
func (c Company) ValuationsIn(currency Currency) (CompanyValuations, bool) {
	for _, v := range c.Valuations {
		if v.Currency == currency {
			return v, true
		}
	}
	return CompanyValuations{}, false
}

// WithValuations returns a copy of c whose valuations are merged with vs.
// An entry in vs replaces the existing entry for the same currency.
func (c Company) WithValuations(vs ...CompanyValuations) Company {
	out := c
	out.Valuations = make([]CompanyValuations, 0, len(c.Valuations)+len(vs))
	out.Valuations = append(out.Valuations, c.Valuations...)
	for _, v := range vs {
		replaced := false
		for i := range out.Valuations {
			if out.Valuations[i].Currency == v.Currency {
				out.Valuations[i] = v
				replaced = true
				break
			}
		}
		if !replaced {
			out.Valuations = append(out.Valuations, v)
		}
	}
	return out
}

// WithRatios returns a copy of c carrying ratios.
func (c Company) WithRatios(ratios CompanyFinancialRatios) Company {
	out := c
	out.Valuations = append([]CompanyValuations(nil), c.Valuations...)
	out.Ratios = ratios
	return out
}

// WithOwnership returns a copy of c carrying ownership.
func (c Company) WithOwnership(ownership PublicOwnershipRatio) Company {
	out := c
	out.Valuations = append([]CompanyValuations(nil), c.Valuations...)
	out.PublicOwnershipRatio = ownership
	return out
}
