package cache

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bist_valuation/internal/feature/valuation/domain/entity"
)

// エンティティは非公開フィールドを持つため、キャッシュには以下の形で保存します。

type cachedValuation struct {
	Currency    string          `json:"currency"`
	LastPrice   decimal.Decimal `json:"last_price"`
	MarketValue decimal.Decimal `json:"market_value"`
	Capital     decimal.Decimal `json:"capital"`
}

type cachedCompany struct {
	Symbol               string              `json:"symbol"`
	Name                 string              `json:"name"`
	PublicOwnershipRatio float64             `json:"public_ownership_ratio"`
	PriceEarnings        decimal.NullDecimal `json:"pe"`
	PriceToBook          decimal.NullDecimal `json:"pb"`
	EvEbitda             decimal.NullDecimal `json:"ev_ebitda"`
	AsOfTerm             string              `json:"as_of_term"`
	Valuations           []cachedValuation   `json:"valuations"`
}

type cachedSector struct {
	ID        int                 `json:"id"`
	Name      string              `json:"name"`
	AveragePE decimal.NullDecimal `json:"average_pe"`
	AveragePB decimal.NullDecimal `json:"average_pb"`
}

func toCachedCompany(c entity.Company) cachedCompany {
	out := cachedCompany{
		Symbol:               c.Symbol.String(),
		Name:                 c.Name.String(),
		PublicOwnershipRatio: c.PublicOwnershipRatio.Float64(),
		PriceEarnings:        c.Ratios.PriceEarnings,
		PriceToBook:          c.Ratios.PriceToBook,
		EvEbitda:             c.Ratios.EvEbitda,
		AsOfTerm:             c.Ratios.AsOfTerm,
		Valuations:           make([]cachedValuation, 0, len(c.Valuations)),
	}
	for _, v := range c.Valuations {
		out.Valuations = append(out.Valuations, cachedValuation{
			Currency:    v.Currency.String(),
			LastPrice:   v.LastPrice.Amount(),
			MarketValue: v.MarketValue.Amount(),
			Capital:     v.Capital.Amount(),
		})
	}
	return out
}

func (c cachedCompany) toEntity() (entity.Company, error) {
	vs := make([]entity.CompanyValuations, 0, len(c.Valuations))
	for _, v := range c.Valuations {
		cv, err := entity.NewCompanyValuations(v.LastPrice, v.MarketValue, v.Capital, entity.Currency(v.Currency))
		if err != nil {
			return entity.Company{}, fmt.Errorf("cached company %s: %w", c.Symbol, err)
		}
		vs = append(vs, cv)
	}
	ownership, err := entity.NewPublicOwnershipRatio(c.PublicOwnershipRatio)
	if err != nil {
		return entity.Company{}, fmt.Errorf("cached company %s: %w", c.Symbol, err)
	}
	ratios := entity.CompanyFinancialRatios{
		PriceEarnings: c.PriceEarnings,
		PriceToBook:   c.PriceToBook,
		EvEbitda:      c.EvEbitda,
		AsOfTerm:      c.AsOfTerm,
	}
	return entity.NewCompany(entity.Symbol(c.Symbol), entity.Name(c.Name), ownership, ratios, vs...)
}

func toCachedCompanies(cs []entity.Company) []cachedCompany {
	out := make([]cachedCompany, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCachedCompany(c))
	}
	return out
}

func fromCachedCompanies(cs []cachedCompany) ([]entity.Company, error) {
	out := make([]entity.Company, 0, len(cs))
	for _, c := range cs {
		e, err := c.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func toCachedSectors(ss []entity.Sector) []cachedSector {
	out := make([]cachedSector, 0, len(ss))
	for _, s := range ss {
		out = append(out, cachedSector{ID: s.ID.Int(), Name: s.Name.String(), AveragePE: s.AveragePE, AveragePB: s.AveragePB})
	}
	return out
}

func fromCachedSectors(ss []cachedSector) ([]entity.Sector, error) {
	out := make([]entity.Sector, 0, len(ss))
	for _, s := range ss {
		e, err := entity.NewSector(entity.SectorID(s.ID), entity.Name(s.Name), s.AveragePE, s.AveragePB, nil)
		if err != nil {
			return nil, fmt.Errorf("cached sector %d: %w", s.ID, err)
		}
		out = append(out, e)
	}
	return out, nil
}
