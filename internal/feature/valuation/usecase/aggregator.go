package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"bist_valuation/internal/feature/valuation/domain"
	"bist_valuation/internal/feature/valuation/domain/entity"
)

// SectorOption は業種ドロップダウンの1項目（未検証）です。
type SectorOption struct {
	Value string // value 属性
	Text  string // 表示名
}

// SectorPage は業種ページから取り出した企業行と業種平均です。
type SectorPage struct {
	Rows []RowPair
	// HasAverages は業種平均ブロックがページに存在したかを表します。
	HasAverages bool
	AveragePE   string
	AveragePB   string
}

// CompanyTag は企業詳細ページから取り出した値です。
type CompanyTag struct {
	Name                 string
	LastBalanceTerm      string
	PublicOwnershipRatio string
}

// PriceSnapshot は価格系列の最新エントリです。
// 米ドル建ての値と TRY 建ての値が並んで公開されます。資本金は TRY 建ての名目値です。
type PriceSnapshot struct {
	Price          decimal.NullDecimal // USD
	MarketValue    decimal.NullDecimal // USD
	PriceTRY       decimal.NullDecimal
	MarketValueTRY decimal.NullDecimal
	Capital        decimal.NullDecimal // TRY
}

// CapitalUSD は資本金を同じエントリの時価総額の比（USD / TRY）で米ドルに換算します。
// どちらかの時価総額が無いか TRY 建てがゼロの場合は無効値を返します。
func (p PriceSnapshot) CapitalUSD() decimal.NullDecimal {
	if !p.Capital.Valid || !p.MarketValue.Valid || !p.MarketValueTRY.Valid || p.MarketValueTRY.Decimal.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(p.Capital.Decimal.Mul(p.MarketValue.Decimal).DivRound(p.MarketValueTRY.Decimal, ratioScale))
}

// Valuations は揃っている通貨ごとの CompanyValuations を返します。
func (p PriceSnapshot) Valuations() ([]entity.CompanyValuations, error) {
	var (
		out  []entity.CompanyValuations
		errs []error
	)
	build := func(price, mv, capital decimal.NullDecimal, c entity.Currency) {
		if !price.Valid || !mv.Valid || !capital.Valid {
			return
		}
		v, err := entity.NewCompanyValuations(price.Decimal, mv.Decimal, capital.Decimal, c)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s valuations: %w", c, err))
			return
		}
		out = append(out, v)
	}
	build(p.PriceTRY, p.MarketValueTRY, p.Capital, entity.TRY)
	build(p.Price, p.MarketValue, p.CapitalUSD(), entity.USD)
	if len(out) == 0 && len(errs) == 0 {
		errs = append(errs, domain.NewNotFoundError("price snapshot", "no complete valuation in any currency"))
	}
	return out, errors.Join(errs...)
}

// MarketSource は業種・企業・財務・価格データの取得元を抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type MarketSource interface {
	ListSectors(ctx context.Context) ([]SectorOption, error)
	FetchSectorPage(ctx context.Context, id entity.SectorID) (SectorPage, error)
	FetchCompanyTag(ctx context.Context, symbol entity.Symbol) (CompanyTag, error)
	FetchFinancials(ctx context.Context, symbol entity.Symbol, terms [4]entity.Term, currency entity.Currency) (entity.FinancialStatement, error)
	FetchLatestPrice(ctx context.Context, symbol entity.Symbol) (PriceSnapshot, error)
}

// ValuationRepository は集約結果の永続化レイヤーを抽象化します。
// どちらの操作もキー（業種ID・銘柄コード）に対して冪等な upsert です。
type ValuationRepository interface {
	UpsertSector(ctx context.Context, sector entity.Sector) (int64, error)
	UpsertCompanies(ctx context.Context, sectorID entity.SectorID, companies []entity.Company) (int64, error)
}

// AggregatorConfig は1回の集約の設定です。
type AggregatorConfig struct {
	SectorConcurrency  int
	CompanyConcurrency int
	// Enrich が true の場合、財務諸表と価格系列で各企業の比率と評価額を更新します。
	Enrich bool
	// RatioCurrency は比率計算に使う財務諸表と時価総額の通貨です。
	RatioCurrency entity.Currency
	Format        NumberFormat
	// ListingScale は一覧ページの時価総額・資本金の単位です。一覧は百万単位で公開されるため既定は 1e6 です。
	// 財務諸表と価格系列の金額は取得元のアダプターで1通貨単位に揃えられます。
	ListingScale decimal.Decimal
}

// DefaultAggregatorConfig は既定の設定を返します。
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		SectorConcurrency:  4,
		CompanyConcurrency: 8,
		Enrich:             true,
		RatioCurrency:      entity.TRY,
		Format:             TurkishNumberFormat,
		ListingScale:       decimal.New(1, 6),
	}
}

// Stage は処理のどの段階で問題が起きたかを表します。
type Stage string

const (
	StageSectorOption Stage = "sector_option"
	StageSectorPage   Stage = "sector_page"
	StageRow          Stage = "row"
	StageAverages     Stage = "averages"
	StageEnrich       Stage = "enrich"
	StagePersist      Stage = "persist"
)

// Skip は除外または劣化した項目の記録です。
type Skip struct {
	Stage    Stage
	SectorID entity.SectorID
	Symbol   entity.Symbol
	Index    int // 行位置。行以外の場合は -1
	Err      error
}

func (s Skip) logAttrs() []any {
	attrs := []any{"stage", s.Stage}
	if s.SectorID != 0 {
		attrs = append(attrs, "sector_id", s.SectorID.Int())
	}
	if s.Symbol != "" {
		attrs = append(attrs, "symbol", s.Symbol.String())
	}
	if s.Index >= 0 {
		attrs = append(attrs, "row", s.Index)
	}
	return append(attrs, "error", s.Err)
}

// Report は1回の集約の結果の概要です。
// Skips は取り込まれなかった項目、Warnings は取り込まれたが一部の値が欠けた項目です。
type Report struct {
	RunID       uuid.UUID
	StartedAt   time.Time
	FinishedAt  time.Time
	Sectors     int
	Companies   int
	SectorRows  int64
	CompanyRows int64
	Skips       []Skip
	Warnings    []Skip
}

// Aggregator は業種一覧の取得から企業の抽出・比率計算・永続化までを実行します。
type Aggregator struct {
	source  MarketSource
	repo    ValuationRepository
	ratios  *RatioEngine
	extract Extractor
	cfg     AggregatorConfig
	now     func() time.Time
}

// NewAggregator は新しい Aggregator を作成します。
func NewAggregator(source MarketSource, repo ValuationRepository, ratios *RatioEngine, cfg AggregatorConfig) *Aggregator {
	if cfg.SectorConcurrency <= 0 {
		cfg.SectorConcurrency = 1
	}
	if cfg.CompanyConcurrency <= 0 {
		cfg.CompanyConcurrency = 1
	}
	if cfg.RatioCurrency == "" {
		cfg.RatioCurrency = entity.TRY
	}
	if ratios == nil {
		ratios = NewRatioEngine(nil, RatioPolicy{})
	}
	return &Aggregator{
		source:  source,
		repo:    repo,
		ratios:  ratios,
		extract: NewExtractor(cfg.Format, entity.TRY).WithMoneyScale(cfg.ListingScale),
		cfg:     cfg,
		now:     time.Now,
	}
}

// sectorResult は1業種分の集約結果です。業種ごとに独立して書き込まれ、最後にまとめられます。
type sectorResult struct {
	sector   *entity.Sector
	skips    []Skip
	warnings []Skip
}

// Collect は業種一覧を取得し、業種ごとに企業を抽出して SectorList を組み立てます。
//
// 業種・行・企業単位の失敗は Report に記録され、他の処理は続行されます。
// 業種一覧自体を取得できない場合のみエラーを返します。
// ctx がキャンセルされると新しい処理は開始されず、それまでに集めた結果が返されます。
func (a *Aggregator) Collect(ctx context.Context) (entity.SectorList, Report, error) {
	rep := Report{RunID: uuid.New(), StartedAt: a.now()}
	var list entity.SectorList

	options, err := a.source.ListSectors(ctx)
	if err != nil {
		rep.FinishedAt = a.now()
		return list, rep, fmt.Errorf("%w: %w", domain.ErrSectorListRead, err)
	}

	type sectorJob struct {
		id   entity.SectorID
		name entity.Name
	}
	jobs := make([]sectorJob, 0, len(options))
	for i, opt := range options {
		id, err := entity.ParseSectorID(opt.Value)
		if err != nil {
			rep.Skips = append(rep.Skips, Skip{Stage: StageSectorOption, Index: i, Err: err})
			continue
		}
		name, err := entity.NewName(opt.Text)
		if err != nil {
			rep.Skips = append(rep.Skips, Skip{Stage: StageSectorOption, SectorID: id, Index: i, Err: err})
			continue
		}
		jobs = append(jobs, sectorJob{id: id, name: name})
	}

	results := make([]sectorResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.SectorConcurrency)
	for i, job := range jobs {
		if gctx.Err() != nil {
			results[i].skips = append(results[i].skips,
				Skip{Stage: StageSectorPage, SectorID: job.id, Index: -1, Err: gctx.Err()})
			continue
		}
		g.Go(func() error {
			results[i] = a.collectSector(gctx, job.id, job.name)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		rep.Skips = append(rep.Skips, r.skips...)
		rep.Warnings = append(rep.Warnings, r.warnings...)
		if r.sector == nil {
			continue
		}
		if list.Add(*r.sector) {
			slog.Warn("duplicate sector id, keeping the latest", "sector_id", r.sector.ID.Int())
		}
	}
	for _, s := range rep.Skips {
		slog.Warn("skipped item during valuation ingest", s.logAttrs()...)
	}
	for _, w := range rep.Warnings {
		slog.Info("partial data during valuation ingest", w.logAttrs()...)
	}

	rep.Sectors = list.Len()
	rep.Companies = list.CompanyCount()
	rep.FinishedAt = a.now()
	return list, rep, nil
}

func (a *Aggregator) collectSector(ctx context.Context, id entity.SectorID, name entity.Name) sectorResult {
	var res sectorResult

	page, err := a.source.FetchSectorPage(ctx, id)
	if err != nil {
		res.skips = append(res.skips, Skip{Stage: StageSectorPage, SectorID: id, Index: -1, Err: err})
		return res
	}

	companies, rowSkips := Partition(a.extract.Extract(page.Rows))
	for _, rs := range rowSkips {
		res.skips = append(res.skips, Skip{Stage: StageRow, SectorID: id, Index: rs.Index, Err: rs.Err})
	}

	pe, pb, err := a.sectorAverages(page, companies)
	if err != nil {
		res.warnings = append(res.warnings, Skip{Stage: StageAverages, SectorID: id, Index: -1, Err: err})
	}

	if a.cfg.Enrich && len(companies) > 0 {
		warnings := make([][]error, len(companies))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.cfg.CompanyConcurrency)
		for i := range companies {
			g.Go(func() error {
				companies[i], warnings[i] = a.enrich(gctx, companies[i])
				return nil
			})
		}
		_ = g.Wait()
		for i, ws := range warnings {
			for _, w := range ws {
				res.warnings = append(res.warnings,
					Skip{Stage: StageEnrich, SectorID: id, Symbol: companies[i].Symbol, Index: -1, Err: w})
			}
		}
	}

	sector, err := entity.NewSector(id, name, pe, pb, companies)
	if err != nil {
		res.skips = append(res.skips, Skip{Stage: StageSectorPage, SectorID: id, Index: -1, Err: err})
		return res
	}
	res.sector = &sector
	return res
}

// sectorAverages はページの業種平均を返します。ページに無いか解析できない場合は
// 企業の一覧上の PE/PB の平均で代替し、その理由をエラーとして返します。
func (a *Aggregator) sectorAverages(page SectorPage, companies []entity.Company) (pe, pb decimal.NullDecimal, err error) {
	if page.HasAverages {
		p, perr := a.cfg.Format.ParseDecimal(page.AveragePE)
		b, berr := a.cfg.Format.ParseDecimal(page.AveragePB)
		if perr == nil && berr == nil {
			return decimal.NewNullDecimal(p), decimal.NewNullDecimal(b), nil
		}
		err = domain.NewValidationError("sectorAverages", page.AveragePE+" / "+page.AveragePB, domain.ErrPEParse)
		if perr == nil {
			err = domain.NewValidationError("sectorAverages", page.AveragePB, domain.ErrPBParse)
		}
	} else {
		err = domain.NewNotFoundError("sectorAverages", "block missing from sector page")
	}

	var pes, pbs []decimal.Decimal
	for _, c := range companies {
		if c.Ratios.PriceEarnings.Valid {
			pes = append(pes, c.Ratios.PriceEarnings.Decimal)
		}
		if c.Ratios.PriceToBook.Valid {
			pbs = append(pbs, c.Ratios.PriceToBook.Decimal)
		}
	}
	return mean(pes), mean(pbs), err
}

func mean(vs []decimal.Decimal) decimal.NullDecimal {
	if len(vs) == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.Sum(vs[0], vs[1:]...).DivRound(decimal.NewFromInt(int64(len(vs))), ratioScale))
}

// enrich は財務諸表と価格系列から企業の評価額と比率を更新します。
// 失敗した項目は一覧ページの値のまま残し、その理由を返します。
func (a *Aggregator) enrich(ctx context.Context, c entity.Company) (entity.Company, []error) {
	var warnings []error

	terms, err := entity.LastFourTerms(c.Ratios.AsOfTerm)
	if err != nil {
		tag, terr := a.source.FetchCompanyTag(ctx, c.Symbol)
		if terr != nil {
			return c, append(warnings, fmt.Errorf("balance term %q: %w", c.Ratios.AsOfTerm, terr))
		}
		terms, err = entity.LastFourTerms(tag.LastBalanceTerm)
		if err != nil {
			return c, append(warnings, err)
		}
		if c.PublicOwnershipRatio == 0 {
			if v, perr := a.cfg.Format.ParseFloat(tag.PublicOwnershipRatio); perr == nil {
				if r, rerr := entity.NewPublicOwnershipRatio(v); rerr == nil {
					c = c.WithOwnership(r)
				}
			}
		}
	}

	if snap, err := a.source.FetchLatestPrice(ctx, c.Symbol); err != nil {
		warnings = append(warnings, fmt.Errorf("latest price: %w", err))
	} else {
		vs, verr := snap.Valuations()
		if verr != nil {
			warnings = append(warnings, verr)
		}
		c = c.WithValuations(vs...)
	}

	fs, err := a.source.FetchFinancials(ctx, c.Symbol, terms, a.cfg.RatioCurrency)
	if err != nil {
		return c, append(warnings, fmt.Errorf("financials: %w", err))
	}
	v, ok := c.ValuationsIn(a.cfg.RatioCurrency)
	if !ok {
		return c, append(warnings, domain.NewNotFoundError("market value", "no valuation in "+a.cfg.RatioCurrency.String()))
	}

	computed, errs := a.ratios.Compute(fs, v.MarketValue, terms[3].String())
	warnings = append(warnings, errs...)
	ratios := c.Ratios
	ratios.AsOfTerm = computed.AsOfTerm
	if computed.PriceEarnings.Valid {
		ratios.PriceEarnings = computed.PriceEarnings
	}
	if computed.PriceToBook.Valid {
		ratios.PriceToBook = computed.PriceToBook
	}
	ratios.EvEbitda = computed.EvEbitda
	return c.WithRatios(ratios), warnings
}

// Run は Collect の結果を業種ごとに永続化します。
// 1業種の永続化に失敗しても記録して次の業種へ進みます。
func (a *Aggregator) Run(ctx context.Context) (Report, error) {
	list, rep, err := a.Collect(ctx)
	if err != nil {
		return rep, err
	}
	for _, s := range list.Sectors() {
		if ctx.Err() != nil {
			rep.Skips = append(rep.Skips, Skip{Stage: StagePersist, SectorID: s.ID, Index: -1, Err: ctx.Err()})
			continue
		}
		n, err := a.repo.UpsertSector(ctx, s)
		if err != nil {
			slog.Error("failed to upsert sector", "sector_id", s.ID.Int(), "error", err)
			rep.Skips = append(rep.Skips, Skip{Stage: StagePersist, SectorID: s.ID, Index: -1, Err: err})
			continue
		}
		rep.SectorRows += n

		m, err := a.repo.UpsertCompanies(ctx, s.ID, s.Companies)
		if err != nil {
			slog.Error("failed to upsert companies", "sector_id", s.ID.Int(), "companies", len(s.Companies), "error", err)
			rep.Skips = append(rep.Skips, Skip{Stage: StagePersist, SectorID: s.ID, Index: -1, Err: err})
			continue
		}
		rep.CompanyRows += m
	}
	rep.FinishedAt = a.now()

	slog.Info("valuation ingest finished",
		"run_id", rep.RunID.String(),
		"sectors", rep.Sectors,
		"companies", rep.Companies,
		"sector_rows", rep.SectorRows,
		"company_rows", rep.CompanyRows,
		"skips", len(rep.Skips),
		"warnings", len(rep.Warnings),
		"elapsed", rep.FinishedAt.Sub(rep.StartedAt),
	)
	return rep, nil
}
