package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bist_valuation/internal/feature/valuation/domain"
	"bist_valuation/internal/feature/valuation/domain/entity"
	"bist_valuation/internal/feature/valuation/usecase"
)

var errUpstream = errors.New("upstream unavailable")

// mockMarketSource は MarketSource インターフェースのモック実装です。
// 並行に呼び出されるため、呼び出し記録は mutex で保護します。
type mockMarketSource struct {
	ListSectorsFunc      func(ctx context.Context) ([]usecase.SectorOption, error)
	FetchSectorPageFunc  func(ctx context.Context, id entity.SectorID) (usecase.SectorPage, error)
	FetchCompanyTagFunc  func(ctx context.Context, symbol entity.Symbol) (usecase.CompanyTag, error)
	FetchFinancialsFunc  func(ctx context.Context, symbol entity.Symbol, terms [4]entity.Term, currency entity.Currency) (entity.FinancialStatement, error)
	FetchLatestPriceFunc func(ctx context.Context, symbol entity.Symbol) (usecase.PriceSnapshot, error)

	mu            sync.Mutex
	tagCalls      []entity.Symbol
	financialArgs map[entity.Symbol][4]entity.Term
}

func (m *mockMarketSource) ListSectors(ctx context.Context) ([]usecase.SectorOption, error) {
	if m.ListSectorsFunc != nil {
		return m.ListSectorsFunc(ctx)
	}
	return nil, nil
}

func (m *mockMarketSource) FetchSectorPage(ctx context.Context, id entity.SectorID) (usecase.SectorPage, error) {
	if m.FetchSectorPageFunc != nil {
		return m.FetchSectorPageFunc(ctx, id)
	}
	return usecase.SectorPage{}, errors.New("FetchSectorPageFunc is not implemented")
}

func (m *mockMarketSource) FetchCompanyTag(ctx context.Context, symbol entity.Symbol) (usecase.CompanyTag, error) {
	m.mu.Lock()
	m.tagCalls = append(m.tagCalls, symbol)
	m.mu.Unlock()
	if m.FetchCompanyTagFunc != nil {
		return m.FetchCompanyTagFunc(ctx, symbol)
	}
	return usecase.CompanyTag{}, errors.New("FetchCompanyTagFunc is not implemented")
}

func (m *mockMarketSource) FetchFinancials(ctx context.Context, symbol entity.Symbol, terms [4]entity.Term, currency entity.Currency) (entity.FinancialStatement, error) {
	m.mu.Lock()
	if m.financialArgs == nil {
		m.financialArgs = map[entity.Symbol][4]entity.Term{}
	}
	m.financialArgs[symbol] = terms
	m.mu.Unlock()
	if m.FetchFinancialsFunc != nil {
		return m.FetchFinancialsFunc(ctx, symbol, terms, currency)
	}
	return entity.FinancialStatement{}, errors.New("FetchFinancialsFunc is not implemented")
}

func (m *mockMarketSource) FetchLatestPrice(ctx context.Context, symbol entity.Symbol) (usecase.PriceSnapshot, error) {
	if m.FetchLatestPriceFunc != nil {
		return m.FetchLatestPriceFunc(ctx, symbol)
	}
	return usecase.PriceSnapshot{}, errors.New("FetchLatestPriceFunc is not implemented")
}

// mockValuationRepository は ValuationRepository インターフェースのモック実装です。
type mockValuationRepository struct {
	UpsertSectorFunc    func(ctx context.Context, sector entity.Sector) (int64, error)
	UpsertCompaniesFunc func(ctx context.Context, sectorID entity.SectorID, companies []entity.Company) (int64, error)

	sectors   []entity.SectorID
	companies map[entity.SectorID][]entity.Company
}

func (m *mockValuationRepository) UpsertSector(ctx context.Context, sector entity.Sector) (int64, error) {
	m.sectors = append(m.sectors, sector.ID)
	if m.UpsertSectorFunc != nil {
		return m.UpsertSectorFunc(ctx, sector)
	}
	return 1, nil
}

func (m *mockValuationRepository) UpsertCompanies(ctx context.Context, sectorID entity.SectorID, companies []entity.Company) (int64, error) {
	if m.companies == nil {
		m.companies = map[entity.SectorID][]entity.Company{}
	}
	m.companies[sectorID] = companies
	if m.UpsertCompaniesFunc != nil {
		return m.UpsertCompaniesFunc(ctx, sectorID, companies)
	}
	return int64(len(companies)), nil
}

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func listingPage(pairs ...usecase.RowPair) usecase.SectorPage {
	return usecase.SectorPage{Rows: pairs, HasAverages: true, AveragePE: "8,50", AveragePB: "1,20"}
}

func noEnrich() usecase.AggregatorConfig {
	cfg := usecase.DefaultAggregatorConfig()
	cfg.Enrich = false
	return cfg
}

func symbols(cs []entity.Company) []entity.Symbol {
	out := make([]entity.Symbol, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Symbol)
	}
	return out
}

func TestAggregator_Collect(t *testing.T) {
	t.Parallel()

	src := &mockMarketSource{
		ListSectorsFunc: func(ctx context.Context) ([]usecase.SectorOption, error) {
			return []usecase.SectorOption{
				{Value: "", Text: "Tümü"},
				{Value: "1", Text: "Bankacılık"},
				{Value: "abc", Text: "Bozuk"},
				{Value: "2", Text: "Enerji"},
				{Value: "-4", Text: "Negatif"},
				{Value: "5", Text: "  "},
			}, nil
		},
		FetchSectorPageFunc: func(ctx context.Context, id entity.SectorID) (usecase.SectorPage, error) {
			switch id {
			case 1:
				bad := validPair("GARAN")
				bad.Summary = summaryRow("GARAN", "Garanti", "x", "1", "1", "1")
				return listingPage(validPair("AKBNK"), bad, validPair("YKBNK")), nil
			case 2:
				return listingPage(validPair("AKSEN")), nil
			}
			return usecase.SectorPage{}, errUpstream
		},
	}

	agg := usecase.NewAggregator(src, &mockValuationRepository{}, nil, noEnrich())
	list, rep, err := agg.Collect(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, rep.RunID)
	require.Equal(t, 2, list.Len())
	sectors := list.Sectors()
	assert.Equal(t, entity.SectorID(1), sectors[0].ID)
	assert.Equal(t, entity.Name("Bankacılık"), sectors[0].Name)
	assert.Equal(t, []entity.Symbol{"AKBNK", "YKBNK"}, symbols(sectors[0].Companies))
	assert.True(t, sectors[0].AveragePE.Decimal.Equal(decimal.RequireFromString("8.5")))
	assert.True(t, sectors[0].AveragePB.Decimal.Equal(decimal.RequireFromString("1.2")))
	assert.Equal(t, entity.SectorID(2), sectors[1].ID)

	assert.Equal(t, 2, rep.Sectors)
	assert.Equal(t, 3, rep.Companies)

	var optionSkips, rowSkips int
	for _, s := range rep.Skips {
		switch s.Stage {
		case usecase.StageSectorOption:
			optionSkips++
			assert.ErrorIs(t, s.Err, domain.ErrValidation)
		case usecase.StageRow:
			rowSkips++
			assert.Equal(t, entity.SectorID(1), s.SectorID)
			assert.Equal(t, 1, s.Index)
			assert.ErrorIs(t, s.Err, domain.ErrLastPriceParse)
		default:
			t.Errorf("unexpected skip: %+v", s)
		}
	}
	assert.Equal(t, 4, optionSkips)
	assert.Equal(t, 1, rowSkips)
	assert.Empty(t, rep.Warnings)
}

func TestAggregator_Collect_DuplicateSectorLastWriteWins(t *testing.T) {
	t.Parallel()

	src := &mockMarketSource{
		ListSectorsFunc: func(ctx context.Context) ([]usecase.SectorOption, error) {
			return []usecase.SectorOption{
				{Value: "7", Text: "Holding"},
				{Value: "8", Text: "Gıda"},
				{Value: "7", Text: "Holding ve Yatırım"},
			}, nil
		},
		FetchSectorPageFunc: func(ctx context.Context, id entity.SectorID) (usecase.SectorPage, error) {
			return listingPage(validPair("KCHOL")), nil
		},
	}

	cfg := noEnrich()
	cfg.SectorConcurrency = 3
	list, _, err := usecase.NewAggregator(src, &mockValuationRepository{}, nil, cfg).Collect(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, list.Len())
	sectors := list.Sectors()
	assert.Equal(t, entity.SectorID(7), sectors[0].ID)
	assert.Equal(t, entity.Name("Holding ve Yatırım"), sectors[0].Name)
	assert.Equal(t, entity.SectorID(8), sectors[1].ID)
}

func TestAggregator_Collect_DuplicateCompanyInSector(t *testing.T) {
	t.Parallel()

	later := validPair("AKBNK")
	later.Summary = summaryRow("AKBNK", "Akbank T.A.Ş.", "60", "312.000", "52", "5.200")

	src := &mockMarketSource{
		ListSectorsFunc: func(ctx context.Context) ([]usecase.SectorOption, error) {
			return []usecase.SectorOption{{Value: "1", Text: "Banka"}}, nil
		},
		FetchSectorPageFunc: func(ctx context.Context, id entity.SectorID) (usecase.SectorPage, error) {
			return listingPage(validPair("AKBNK"), validPair("GARAN"), later), nil
		},
	}

	list, _, err := usecase.NewAggregator(src, &mockValuationRepository{}, nil, noEnrich()).Collect(context.Background())
	require.NoError(t, err)

	s, ok := list.Get(1)
	require.True(t, ok)
	assert.Equal(t, []entity.Symbol{"AKBNK", "GARAN"}, symbols(s.Companies))
	assert.Equal(t, entity.Name("Akbank T.A.Ş."), s.Companies[0].Name)
}

func TestAggregator_Collect_SectorPageFailureIsIsolated(t *testing.T) {
	t.Parallel()

	src := &mockMarketSource{
		ListSectorsFunc: func(ctx context.Context) ([]usecase.SectorOption, error) {
			return []usecase.SectorOption{{Value: "1", Text: "Banka"}, {Value: "2", Text: "Enerji"}}, nil
		},
		FetchSectorPageFunc: func(ctx context.Context, id entity.SectorID) (usecase.SectorPage, error) {
			if id == 1 {
				return usecase.SectorPage{}, errUpstream
			}
			return listingPage(validPair("AKSEN")), nil
		},
	}

	list, rep, err := usecase.NewAggregator(src, &mockValuationRepository{}, nil, noEnrich()).Collect(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, list.Len())
	assert.Equal(t, entity.SectorID(2), list.Sectors()[0].ID)
	require.Len(t, rep.Skips, 1)
	assert.Equal(t, usecase.StageSectorPage, rep.Skips[0].Stage)
	assert.Equal(t, entity.SectorID(1), rep.Skips[0].SectorID)
	assert.ErrorIs(t, rep.Skips[0].Err, errUpstream)
}

func TestAggregator_Collect_SectorAveragesFallback(t *testing.T) {
	t.Parallel()

	a := validPair("AKBNK")
	a.Financials = financialsRow("AKBNK", "4", "1", "9/2024")
	b := validPair("GARAN")
	b.Financials = financialsRow("GARAN", "6", "2", "9/2024")

	tests := []struct {
		name string
		page usecase.SectorPage
	}{
		{name: "block missing", page: usecase.SectorPage{Rows: []usecase.RowPair{a, b}}},
		{name: "block unparseable", page: usecase.SectorPage{Rows: []usecase.RowPair{a, b}, HasAverages: true, AveragePE: "A/D", AveragePB: "1,1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := &mockMarketSource{
				ListSectorsFunc: func(ctx context.Context) ([]usecase.SectorOption, error) {
					return []usecase.SectorOption{{Value: "1", Text: "Banka"}}, nil
				},
				FetchSectorPageFunc: func(ctx context.Context, id entity.SectorID) (usecase.SectorPage, error) {
					return tt.page, nil
				},
			}

			list, rep, err := usecase.NewAggregator(src, &mockValuationRepository{}, nil, noEnrich()).Collect(context.Background())
			require.NoError(t, err)

			s, ok := list.Get(1)
			require.True(t, ok)
			require.True(t, s.AveragePE.Valid)
			assert.True(t, s.AveragePE.Decimal.Equal(decimal.RequireFromString("5")))
			require.True(t, s.AveragePB.Valid)
			assert.True(t, s.AveragePB.Decimal.Equal(decimal.RequireFromString("1.5")))

			require.Len(t, rep.Warnings, 1)
			assert.Equal(t, usecase.StageAverages, rep.Warnings[0].Stage)
		})
	}
}

func TestAggregator_Collect_Enrich(t *testing.T) {
	t.Parallel()

	fs := fullStatement(t)
	src := &mockMarketSource{
		ListSectorsFunc: func(ctx context.Context) ([]usecase.SectorOption, error) {
			return []usecase.SectorOption{{Value: "3", Text: "Ulaştırma"}}, nil
		},
		FetchSectorPageFunc: func(ctx context.Context, id entity.SectorID) (usecase.SectorPage, error) {
			noTerm := validPair("PGSUS")
			noTerm.Financials = financialsRow("PGSUS", "9", "3", "")
			return listingPage(validPair("THYAO"), noTerm, validPair("CLEBI")), nil
		},
		FetchCompanyTagFunc: func(ctx context.Context, symbol entity.Symbol) (usecase.CompanyTag, error) {
			return usecase.CompanyTag{Name: "Pegasus", LastBalanceTerm: "6/2024", PublicOwnershipRatio: "42,5"}, nil
		},
		FetchLatestPriceFunc: func(ctx context.Context, symbol entity.Symbol) (usecase.PriceSnapshot, error) {
			return usecase.PriceSnapshot{
				Price:          nd("9.1"),
				MarketValue:    nd("30"),
				PriceTRY:       nd("310"),
				MarketValueTRY: nd("1000"),
				Capital:        nd("1380"),
			}, nil
		},
		FetchFinancialsFunc: func(ctx context.Context, symbol entity.Symbol, _ [4]entity.Term, currency entity.Currency) (entity.FinancialStatement, error) {
			if currency != entity.TRY {
				return entity.FinancialStatement{}, errors.New("unexpected currency")
			}
			if symbol == "CLEBI" {
				return entity.FinancialStatement{}, errUpstream
			}
			return fs, nil
		},
	}

	cfg := usecase.DefaultAggregatorConfig()
	list, rep, err := usecase.NewAggregator(src, &mockValuationRepository{}, nil, cfg).Collect(context.Background())
	require.NoError(t, err)

	s, ok := list.Get(3)
	require.True(t, ok)
	require.Len(t, s.Companies, 3)

	thy := s.Companies[0]
	assert.Equal(t, entity.Symbol("THYAO"), thy.Symbol)
	assert.Equal(t, "9/2024", thy.Ratios.AsOfTerm)
	assertDecimal(t, "4", thy.Ratios.PriceEarnings.Decimal)
	assertDecimal(t, "2", thy.Ratios.PriceToBook.Decimal)
	require.True(t, thy.Ratios.EvEbitda.Valid)
	assertDecimal(t, "3.20512821", thy.Ratios.EvEbitda.Decimal)

	tryVals, ok := thy.ValuationsIn(entity.TRY)
	require.True(t, ok)
	assertDecimal(t, "310", tryVals.LastPrice.Amount())
	usdVals, ok := thy.ValuationsIn(entity.USD)
	require.True(t, ok)
	assertDecimal(t, "30", usdVals.MarketValue.Amount())
	// 1380 TRY × (30 / 1000)
	assertDecimal(t, "41.4", usdVals.Capital.Amount())

	// 決算期が一覧に無い銘柄は詳細ページの決算期を使う
	pgs := s.Companies[1]
	assert.Equal(t, "6/2024", pgs.Ratios.AsOfTerm)
	assert.Equal(t, []entity.Symbol{"PGSUS"}, src.tagCalls)
	assert.Equal(t, [4]entity.Term{{Month: 9, Year: 2023}, {Month: 12, Year: 2023}, {Month: 3, Year: 2024}, {Month: 6, Year: 2024}}, src.financialArgs["PGSUS"])

	// 財務諸表の取得に失敗した銘柄は一覧の比率のまま残る
	clb := s.Companies[2]
	assertDecimal(t, "4.35", clb.Ratios.PriceEarnings.Decimal)
	assertDecimal(t, "0.92", clb.Ratios.PriceToBook.Decimal)
	assert.False(t, clb.Ratios.EvEbitda.Valid)
	_, ok = clb.ValuationsIn(entity.USD)
	assert.True(t, ok, "price enrichment still applies")

	require.Len(t, rep.Warnings, 1)
	assert.Equal(t, usecase.StageEnrich, rep.Warnings[0].Stage)
	assert.Equal(t, entity.Symbol("CLEBI"), rep.Warnings[0].Symbol)
	assert.ErrorIs(t, rep.Warnings[0].Err, errUpstream)
	assert.Empty(t, rep.Skips)
}

func TestAggregator_Collect_EnrichWithListingMarketValue(t *testing.T) {
	t.Parallel()

	// 一覧ページは時価総額・資本金を百万 TL で公開する
	listing := usecase.RowPair{
		Summary:    summaryRow("THYAO", "Türk Hava Yolları", "301,25", "415.725,00", "50,12", "1.380,00"),
		Financials: financialsRow("THYAO", "3,20", "0,85", "9/2024"),
	}
	// 財務諸表は1 TL 単位
	fs := statement(t, entity.TRY, map[string]terms{
		"2O":   {"", "", "", "415700000000"},
		"20CF": {"", "", "", "95000000000"},
	})

	src := &mockMarketSource{
		ListSectorsFunc: func(ctx context.Context) ([]usecase.SectorOption, error) {
			return []usecase.SectorOption{{Value: "3", Text: "Ulaştırma"}}, nil
		},
		FetchSectorPageFunc: func(ctx context.Context, id entity.SectorID) (usecase.SectorPage, error) {
			return listingPage(listing), nil
		},
		FetchLatestPriceFunc: func(ctx context.Context, symbol entity.Symbol) (usecase.PriceSnapshot, error) {
			return usecase.PriceSnapshot{}, errUpstream
		},
		FetchFinancialsFunc: func(ctx context.Context, symbol entity.Symbol, _ [4]entity.Term, currency entity.Currency) (entity.FinancialStatement, error) {
			return fs, nil
		},
	}

	repo := &mockValuationRepository{}
	rep, err := usecase.NewAggregator(src, repo, nil, usecase.DefaultAggregatorConfig()).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.companies[3], 1)
	c := repo.companies[3][0]

	v, ok := c.ValuationsIn(entity.TRY)
	require.True(t, ok)
	assertDecimal(t, "301.25", v.LastPrice.Amount())
	assertDecimal(t, "415725000000", v.MarketValue.Amount())
	assertDecimal(t, "1380000000", v.Capital.Amount())

	// 415.725.000.000 / 95.000.000.000, 415.725.000.000 / 415.700.000.000
	assertDecimal(t, "4.37605263", c.Ratios.PriceEarnings.Decimal)
	assertDecimal(t, "1.00006014", c.Ratios.PriceToBook.Decimal)
	assert.False(t, c.Ratios.EvEbitda.Valid)

	// 価格と EV/EBITDA の2件
	assert.Len(t, rep.Warnings, 2)
	assert.Empty(t, rep.Skips)
}

func TestAggregator_Collect_ListingScaleOne(t *testing.T) {
	t.Parallel()

	src := &mockMarketSource{
		ListSectorsFunc: func(ctx context.Context) ([]usecase.SectorOption, error) {
			return []usecase.SectorOption{{Value: "3", Text: "Ulaştırma"}}, nil
		},
		FetchSectorPageFunc: func(ctx context.Context, id entity.SectorID) (usecase.SectorPage, error) {
			return listingPage(validPair("THYAO")), nil
		},
	}

	cfg := noEnrich()
	cfg.ListingScale = decimal.NewFromInt(1)
	list, _, err := usecase.NewAggregator(src, &mockValuationRepository{}, nil, cfg).Collect(context.Background())
	require.NoError(t, err)

	v, ok := list.Sectors()[0].Companies[0].ValuationsIn(entity.TRY)
	require.True(t, ok)
	assertDecimal(t, "415700", v.MarketValue.Amount())
	assertDecimal(t, "1380", v.Capital.Amount())
}

func TestAggregator_Collect_ListSectorsFailure(t *testing.T) {
	t.Parallel()

	src := &mockMarketSource{
		ListSectorsFunc: func(ctx context.Context) ([]usecase.SectorOption, error) {
			return nil, errUpstream
		},
	}

	list, _, err := usecase.NewAggregator(src, &mockValuationRepository{}, nil, noEnrich()).Collect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSectorListRead)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, 0, list.Len())
}

func TestAggregator_Collect_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &mockMarketSource{
		ListSectorsFunc: func(ctx context.Context) ([]usecase.SectorOption, error) {
			return []usecase.SectorOption{{Value: "1", Text: "Banka"}, {Value: "2", Text: "Enerji"}}, nil
		},
		FetchSectorPageFunc: func(ctx context.Context, id entity.SectorID) (usecase.SectorPage, error) {
			t.Error("no sector page should be fetched after cancellation")
			return usecase.SectorPage{}, ctx.Err()
		},
	}

	list, rep, err := usecase.NewAggregator(src, &mockValuationRepository{}, nil, noEnrich()).Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, list.Len())
	require.Len(t, rep.Skips, 2)
	for _, s := range rep.Skips {
		assert.ErrorIs(t, s.Err, context.Canceled)
	}
}

func TestAggregator_Run(t *testing.T) {
	t.Parallel()

	src := &mockMarketSource{
		ListSectorsFunc: func(ctx context.Context) ([]usecase.SectorOption, error) {
			return []usecase.SectorOption{
				{Value: "1", Text: "Banka"},
				{Value: "2", Text: "Enerji"},
				{Value: "3", Text: "Gıda"},
			}, nil
		},
		FetchSectorPageFunc: func(ctx context.Context, id entity.SectorID) (usecase.SectorPage, error) {
			switch id {
			case 1:
				return listingPage(validPair("AKBNK"), validPair("GARAN")), nil
			case 2:
				return listingPage(validPair("AKSEN")), nil
			default:
				return listingPage(validPair("ULKER")), nil
			}
		},
	}
	repo := &mockValuationRepository{
		UpsertSectorFunc: func(ctx context.Context, sector entity.Sector) (int64, error) {
			if sector.ID == 2 {
				return 0, errors.New("deadlock detected")
			}
			return 1, nil
		},
	}

	rep, err := usecase.NewAggregator(src, repo, nil, noEnrich()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []entity.SectorID{1, 2, 3}, repo.sectors)
	assert.Equal(t, []entity.Symbol{"AKBNK", "GARAN"}, symbols(repo.companies[1]))
	_, persisted := repo.companies[2]
	assert.False(t, persisted, "companies of a sector that failed to persist are not written")
	assert.Equal(t, int64(2), rep.SectorRows)
	assert.Equal(t, int64(3), rep.CompanyRows)

	require.Len(t, rep.Skips, 1)
	assert.Equal(t, usecase.StagePersist, rep.Skips[0].Stage)
	assert.Equal(t, entity.SectorID(2), rep.Skips[0].SectorID)
	assert.False(t, rep.FinishedAt.Before(rep.StartedAt))
}

func TestPriceSnapshot_Valuations(t *testing.T) {
	t.Parallel()

	vs, err := usecase.PriceSnapshot{PriceTRY: nd("10"), MarketValueTRY: nd("100"), Capital: nd("10")}.Valuations()
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, entity.TRY, vs[0].Currency)

	vs, err = usecase.PriceSnapshot{
		Price: nd("-1"), MarketValue: nd("3"),
		PriceTRY: nd("10"), MarketValueTRY: nd("100"),
		Capital: nd("10"),
	}.Valuations()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNegativePrice)
	require.Len(t, vs, 1, "the valid currency is still returned")

	_, err = usecase.PriceSnapshot{}.Valuations()
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPriceSnapshot_CapitalUSD(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		snap    usecase.PriceSnapshot
		want    string // 空の場合は無効値
		wantUSD bool
	}{
		{
			name: "converted with the market value ratio",
			snap: usecase.PriceSnapshot{
				Price: nd("8.8"), MarketValue: nd("12150000000"),
				PriceTRY: nd("301.25"), MarketValueTRY: nd("415725000000"),
				Capital: nd("1380000000"),
			},
			want:    "40331950.20746888",
			wantUSD: true,
		},
		{
			name:    "no TRY market value",
			snap:    usecase.PriceSnapshot{Price: nd("8.8"), MarketValue: nd("12150"), Capital: nd("1380")},
			wantUSD: false,
		},
		{
			name:    "zero TRY market value",
			snap:    usecase.PriceSnapshot{Price: nd("8.8"), MarketValue: nd("12150"), MarketValueTRY: nd("0"), PriceTRY: nd("1"), Capital: nd("1380")},
			wantUSD: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.snap.CapitalUSD()
			assert.Equal(t, tt.want != "", got.Valid)
			if tt.want != "" {
				assertDecimal(t, tt.want, got.Decimal)
			}

			vs, _ := tt.snap.Valuations()
			var hasUSD bool
			for _, v := range vs {
				if v.Currency == entity.USD {
					hasUSD = true
					assert.Equal(t, entity.USD, v.Capital.Currency())
				}
				if v.Currency == entity.TRY {
					assertDecimal(t, tt.snap.Capital.Decimal.String(), v.Capital.Amount())
				}
			}
			assert.Equal(t, tt.wantUSD, hasUSD)
		})
	}
}
