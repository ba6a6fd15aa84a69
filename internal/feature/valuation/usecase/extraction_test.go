package usecase_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bist_valuation/internal/feature/valuation/domain"
	"bist_valuation/internal/feature/valuation/domain/entity"
	"bist_valuation/internal/feature/valuation/usecase"
)

// summaryRow は一覧ページ概要行のテスト用データを作成します。
func summaryRow(symbol, name, lastPrice, marketWorth, publicRatio, capital string) usecase.TextRow {
	return usecase.TextRow{symbol, name, "Ulaştırma", lastPrice, marketWorth, "1.234,5", publicRatio, capital}
}

// financialsRow は一覧ページ財務行のテスト用データを作成します。
func financialsRow(symbol, pe, pb, term string) usecase.TextRow {
	return usecase.TextRow{symbol, "", pe, "7,10", "3,40", pb, term}
}

func validPair(symbol string) usecase.RowPair {
	return usecase.RowPair{
		Summary:    summaryRow(symbol, symbol+" A.Ş.", "301,25", "415.700,00", "50,12", "1.380,00"),
		Financials: financialsRow(symbol, "4,35", "0,92", "9/2024"),
	}
}

func TestExtractor_ExtractCompany(t *testing.T) {
	t.Parallel()

	ex := usecase.NewExtractor(usecase.TurkishNumberFormat, entity.TRY)

	c, err := ex.ExtractCompany(validPair("thyao").Summary, validPair("thyao").Financials)
	require.NoError(t, err)

	assert.Equal(t, entity.Symbol("THYAO"), c.Symbol)
	assert.Equal(t, entity.Name("thyao A.Ş."), c.Name)
	assert.InDelta(t, 50.12, c.PublicOwnershipRatio.Float64(), 1e-9)

	v, ok := c.ValuationsIn(entity.TRY)
	require.True(t, ok)
	assert.True(t, v.LastPrice.Amount().Equal(decimal.RequireFromString("301.25")))
	assert.True(t, v.MarketValue.Amount().Equal(decimal.RequireFromString("415700")))
	assert.True(t, v.Capital.Amount().Equal(decimal.RequireFromString("1380")))

	require.True(t, c.Ratios.PriceEarnings.Valid)
	assert.True(t, c.Ratios.PriceEarnings.Decimal.Equal(decimal.RequireFromString("4.35")))
	require.True(t, c.Ratios.PriceToBook.Valid)
	assert.True(t, c.Ratios.PriceToBook.Decimal.Equal(decimal.RequireFromString("0.92")))
	assert.False(t, c.Ratios.EvEbitda.Valid)
	assert.Equal(t, "9/2024", c.Ratios.AsOfTerm)
}

func TestExtractor_ExtractCompany_Errors(t *testing.T) {
	t.Parallel()

	ok := validPair("ASELS")

	tests := []struct {
		name       string
		summary    usecase.Row
		financials usecase.Row
		wantErr    error
		wantField  string
	}{
		{
			name:       "last price not numeric",
			summary:    summaryRow("ASELS", "Aselsan", "-", "1", "1", "1"),
			financials: ok.Financials,
			wantErr:    domain.ErrLastPriceParse,
			wantField:  "lastPrice",
		},
		{
			name:       "market worth not numeric",
			summary:    summaryRow("ASELS", "Aselsan", "1", "n/a", "1", "1"),
			financials: ok.Financials,
			wantErr:    domain.ErrMarketWorthParse,
			wantField:  "marketWorth",
		},
		{
			name:       "public ratio not numeric",
			summary:    summaryRow("ASELS", "Aselsan", "1", "1", "", "1"),
			financials: ok.Financials,
			wantErr:    domain.ErrPublicRatioParse,
			wantField:  "publicRatio",
		},
		{
			name:       "capital not numeric",
			summary:    summaryRow("ASELS", "Aselsan", "1", "1", "1", "abc"),
			financials: ok.Financials,
			wantErr:    domain.ErrCapitalParse,
			wantField:  "capital",
		},
		{
			name:       "PE not numeric",
			summary:    ok.Summary,
			financials: financialsRow("ASELS", "A/D", "1", "9/2024"),
			wantErr:    domain.ErrPEParse,
			wantField:  "priceEarnings",
		},
		{
			name:       "PB not numeric",
			summary:    ok.Summary,
			financials: financialsRow("ASELS", "1", "x", "9/2024"),
			wantErr:    domain.ErrPBParse,
			wantField:  "priceToBook",
		},
		{
			name:       "first failing numeric cell wins",
			summary:    summaryRow("ASELS", "Aselsan", "1", "bad", "bad", "bad"),
			financials: financialsRow("ASELS", "bad", "bad", "9/2024"),
			wantErr:    domain.ErrMarketWorthParse,
			wantField:  "marketWorth",
		},
		{
			name:       "numeric cells are checked before the symbol",
			summary:    summaryRow("  ", "Aselsan", "1", "1", "1", "bad"),
			financials: ok.Financials,
			wantErr:    domain.ErrCapitalParse,
			wantField:  "capital",
		},
		{
			name:       "empty symbol",
			summary:    summaryRow("  ", "Aselsan", "1", "1", "1", "1"),
			financials: ok.Financials,
			wantErr:    domain.ErrCompanyCode,
			wantField:  "symbol",
		},
		{
			name:       "empty name",
			summary:    summaryRow("ASELS", "", "1", "1", "1", "1"),
			financials: ok.Financials,
			wantErr:    domain.ErrName,
			wantField:  "name",
		},
		{
			name:       "ownership above 100",
			summary:    summaryRow("ASELS", "Aselsan", "1", "1", "100,5", "1"),
			financials: ok.Financials,
			wantErr:    domain.ErrOwnershipRange,
			wantField:  "publicOwnershipRatio",
		},
		{
			name:       "negative price",
			summary:    summaryRow("ASELS", "Aselsan", "-1", "1", "1", "1"),
			financials: ok.Financials,
			wantErr:    domain.ErrNegativePrice,
			wantField:  "price",
		},
		{
			name:       "short financials row",
			summary:    ok.Summary,
			financials: usecase.TextRow{"ASELS", ""},
			wantErr:    domain.ErrPEParse,
			wantField:  "priceEarnings",
		},
		{
			name:       "missing financials row",
			summary:    ok.Summary,
			financials: nil,
			wantErr:    domain.ErrPEParse,
			wantField:  "priceEarnings",
		},
	}

	ex := usecase.Extractor{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ex.ExtractCompany(tt.summary, tt.financials)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, domain.ErrValidation)

			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

// TestExtractor_PartialFailure は失敗した行があってもバッチ全体が中断されないことを検証します。
func TestExtractor_PartialFailure(t *testing.T) {
	t.Parallel()

	pairs := []usecase.RowPair{
		validPair("AKBNK"),
		validPair("ARCLK"),
		{
			Summary:    summaryRow("ASELS", "Aselsan", "1", "1", "1", "bilinmiyor"),
			Financials: financialsRow("ASELS", "1", "1", "9/2024"),
		},
		validPair("BIMAS"),
		validPair("EREGL"),
	}

	companies, skips := usecase.Partition(usecase.Extractor{}.Extract(pairs))

	require.Len(t, companies, 4)
	got := make([]entity.Symbol, 0, len(companies))
	for _, c := range companies {
		got = append(got, c.Symbol)
	}
	assert.Equal(t, []entity.Symbol{"AKBNK", "ARCLK", "BIMAS", "EREGL"}, got)

	require.Len(t, skips, 1)
	assert.Equal(t, 2, skips[0].Index)
	assert.ErrorIs(t, skips[0].Err, domain.ErrCapitalParse)
}

func TestExtractor_Extract_StopsEarly(t *testing.T) {
	t.Parallel()

	pairs := []usecase.RowPair{validPair("AKBNK"), validPair("ARCLK"), validPair("BIMAS")}

	var seen []int
	for i := range (usecase.Extractor{}).Extract(pairs) {
		seen = append(seen, i)
		if i == 1 {
			break
		}
	}
	assert.Equal(t, []int{0, 1}, seen)
}

func TestExtractor_InvariantFormat(t *testing.T) {
	t.Parallel()

	ex := usecase.NewExtractor(usecase.InvariantNumberFormat, entity.USD)
	c, err := ex.ExtractCompany(
		summaryRow("KCHOL", "Koç Holding", "5.12", "12,980.40", "22.3", "2,535.90"),
		financialsRow("KCHOL", "6.1", "1.05", "12/2024"),
	)
	require.NoError(t, err)

	v, ok := c.ValuationsIn(entity.USD)
	require.True(t, ok)
	assert.True(t, v.MarketValue.Amount().Equal(decimal.RequireFromString("12980.4")))
	_, ok = c.ValuationsIn(entity.TRY)
	assert.False(t, ok)
}
