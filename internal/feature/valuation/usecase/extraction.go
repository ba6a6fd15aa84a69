package usecase

import (
	"iter"
	"strings"

	"github.com/shopspring/decimal"

	"bist_valuation/internal/feature/valuation/domain"
	"bist_valuation/internal/feature/valuation/domain/entity"
)

// 一覧ページの列位置。
const (
	colSymbol      = 0 // summary
	colName        = 1 // summary
	colLastPrice   = 3 // summary
	colMarketWorth = 4 // summary
	colPublicRatio = 6 // summary
	colCapital     = 7 // summary
	colPE          = 2 // financials
	colPB          = 5 // financials
	colBalanceTerm = 6 // financials
)

// Row は表の1行のセルテキストを位置で参照するための抽象です。
type Row interface {
	// Cell は i 番目のセルのテキストを返します。セルが存在しない場合 false を返します。
	Cell(i int) (string, bool)
}

// TextRow はセルテキストのスライスで表現された Row です。
type TextRow []string

func (r TextRow) Cell(i int) (string, bool) {
	if i < 0 || i >= len(r) {
		return "", false
	}
	return r[i], true
}

// RowPair は同じ企業の概要行と財務行の組です。
type RowPair struct {
	Summary    Row
	Financials Row
}

// ExtractResult は1行分の抽出結果です。Err が nil の場合のみ Company が有効です。
type ExtractResult struct {
	Company entity.Company
	Err     error
}

// RowSkip は抽出できなかった行の位置と理由を記録します。
type RowSkip struct {
	Index int
	Err   error
}

// Extractor は一覧ページの行を検証済みの Company に変換します。
type Extractor struct {
	Format   NumberFormat
	Currency entity.Currency // 一覧ページの価格の通貨。空の場合は TRY
	// MoneyScale は一覧ページの時価総額・資本金に掛ける倍率です（百万単位なら 1e6）。
	// ゼロ値は 1 として扱います。終値は1株あたりのため対象外です。
	MoneyScale decimal.Decimal
}

// NewExtractor は新しい Extractor を作成します。
func NewExtractor(format NumberFormat, currency entity.Currency) Extractor {
	return Extractor{Format: format, Currency: currency}
}

// WithMoneyScale は MoneyScale を設定した Extractor を返します。
func (e Extractor) WithMoneyScale(scale decimal.Decimal) Extractor {
	e.MoneyScale = scale
	return e
}

func (e Extractor) scaleMoney(d decimal.Decimal) decimal.Decimal {
	if e.MoneyScale.IsZero() {
		return d
	}
	return d.Mul(e.MoneyScale)
}

func (e Extractor) currency() entity.Currency {
	if e.Currency == "" {
		return entity.TRY
	}
	return e.Currency
}

func (e Extractor) decimalCell(row Row, i int, field string, kind error) (decimal.Decimal, error) {
	raw, ok := cell(row, i)
	if !ok {
		return decimal.Decimal{}, domain.NewValidationError(field, "", kind)
	}
	d, err := e.Format.ParseDecimal(raw)
	if err != nil {
		return decimal.Decimal{}, domain.NewValidationError(field, raw, kind)
	}
	return d, nil
}

func cell(row Row, i int) (string, bool) {
	if row == nil {
		return "", false
	}
	raw, ok := row.Cell(i)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(raw), true
}

// ExtractCompany は概要行と財務行から Company を構築します。
//
// 数値セルは LastPrice, MarketWorth, PublicRatio, Capital, PE, PB の順に解析し、
// 最初に失敗したセルのエラーを返します。その後 Symbol と Name を検証します。
// PE/PB は一覧ページ上の比率として Ratios に、財務行の決算期は Ratios.AsOfTerm に設定されます。
func (e Extractor) ExtractCompany(summary, financials Row) (entity.Company, error) {
	lastPrice, err := e.decimalCell(summary, colLastPrice, "lastPrice", domain.ErrLastPriceParse)
	if err != nil {
		return entity.Company{}, err
	}
	marketWorth, err := e.decimalCell(summary, colMarketWorth, "marketWorth", domain.ErrMarketWorthParse)
	if err != nil {
		return entity.Company{}, err
	}
	publicRatio, err := e.decimalCell(summary, colPublicRatio, "publicRatio", domain.ErrPublicRatioParse)
	if err != nil {
		return entity.Company{}, err
	}
	capital, err := e.decimalCell(summary, colCapital, "capital", domain.ErrCapitalParse)
	if err != nil {
		return entity.Company{}, err
	}
	pe, err := e.decimalCell(financials, colPE, "priceEarnings", domain.ErrPEParse)
	if err != nil {
		return entity.Company{}, err
	}
	pb, err := e.decimalCell(financials, colPB, "priceToBook", domain.ErrPBParse)
	if err != nil {
		return entity.Company{}, err
	}

	rawSymbol, _ := cell(summary, colSymbol)
	symbol, err := entity.NewSymbol(rawSymbol)
	if err != nil {
		return entity.Company{}, err
	}
	rawName, _ := cell(summary, colName)
	name, err := entity.NewName(rawName)
	if err != nil {
		return entity.Company{}, err
	}

	ratio, _ := publicRatio.Float64()
	ownership, err := entity.NewPublicOwnershipRatio(ratio)
	if err != nil {
		return entity.Company{}, err
	}
	valuations, err := entity.NewCompanyValuations(lastPrice, e.scaleMoney(marketWorth), e.scaleMoney(capital), e.currency())
	if err != nil {
		return entity.Company{}, err
	}

	asOf, _ := cell(financials, colBalanceTerm)
	ratios := entity.CompanyFinancialRatios{
		PriceEarnings: decimal.NewNullDecimal(pe),
		PriceToBook:   decimal.NewNullDecimal(pb),
		AsOfTerm:      asOf,
	}
	return entity.NewCompany(symbol, name, ownership, ratios, valuations)
}

// Extract は各行の抽出結果を遅延評価で返します。キーは入力の行位置です。
// 失敗した行があっても後続の行の処理は続行されます。
func (e Extractor) Extract(pairs []RowPair) iter.Seq2[int, ExtractResult] {
	return func(yield func(int, ExtractResult) bool) {
		for i, p := range pairs {
			c, err := e.ExtractCompany(p.Summary, p.Financials)
			if !yield(i, ExtractResult{Company: c, Err: err}) {
				return
			}
		}
	}
}

// Partition は抽出結果を成功した Company（入力順）とスキップ記録に分けます。
func Partition(seq iter.Seq2[int, ExtractResult]) ([]entity.Company, []RowSkip) {
	var (
		companies []entity.Company
		skips     []RowSkip
	)
	for i, r := range seq {
		if r.Err != nil {
			skips = append(skips, RowSkip{Index: i, Err: r.Err})
			continue
		}
		companies = append(companies, r.Company)
	}
	return companies, skips
}
