package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bist_valuation/internal/feature/valuation/domain"
	"bist_valuation/internal/feature/valuation/domain/entity"
)

// ratioScale は比率の除算で保持する小数桁数です。
const ratioScale = 8

// ItemCodes は FinancialValueType から財務諸表の項目コードへの対応表です。
type ItemCodes map[entity.FinancialValueType]string

// DefaultItemCodes は財務諸表 API が公開している項目コードを返します。
func DefaultItemCodes() ItemCodes {
	return ItemCodes{
		entity.NetProfit:                     "20CF",
		entity.OperationProfit:               "3H",
		entity.TotalAssets:                   "1BL",
		entity.ShortTermLiabilities:          "2A",
		entity.LongTermLiabilities:           "2B",
		entity.CashAndCashEquivalents:        "1AA",
		entity.ShortTermFinancialInvestments: "1AB",
		entity.FinancialInvestments:          "1BC",
		entity.ShortTermFinancialLoans:       "2AA",
		entity.LongTermFinancialLoans:        "2BA",
		entity.GrossProfit:                   "3D",
		entity.Amortization:                  "4B",
		entity.AdministrativeCosts:           "3DB",
		entity.MarketingCosts:                "3DA",
		entity.ResearchAndDevelopmentCosts:   "3DC",
		entity.ParentShares:                  "3Z",
		entity.ParentShareholdersCapital:     "2O",
	}
}

// BookValueBasis は P/B の分母（自己資本）の定義です。
type BookValueBasis int

const (
	// BookParentEquity は親会社株主に帰属する自己資本（2O）を分母とします。
	BookParentEquity BookValueBasis = iota
	// BookAssetsMinusLiabilities は 総資産 - 短期負債 - 長期負債 を分母とします。
	BookAssetsMinusLiabilities
)

// EnterpriseValueBasis は企業価値（EV）の定義です。
type EnterpriseValueBasis int

const (
	// EVNetDebt: 時価総額 + 短期借入金 + 長期借入金 - 現金及び現金同等物
	EVNetDebt EnterpriseValueBasis = iota
	// EVNetDebtLessInvestments: EVNetDebt から短期金融投資と金融投資をさらに差し引きます。
	EVNetDebtLessInvestments
)

// EBITDABasis は EBITDA の定義です。
type EBITDABasis int

const (
	// EBITDASumOfLines: 売上総利益 + 償却費 + 一般管理費 + 販売費 + 研究開発費
	// 費用項目は財務諸表上で負の値として公開されます。
	EBITDASumOfLines EBITDABasis = iota
	// EBITDAGrossLessCosts: 売上総利益 + 償却費 - 一般管理費 - 販売費 - 研究開発費
	EBITDAGrossLessCosts
)

// RatioPolicy は比率計算の定義を選択します。ゼロ値が既定の定義です。
type RatioPolicy struct {
	Book            BookValueBasis
	EnterpriseValue EnterpriseValueBasis
	EBITDA          EBITDABasis
}

// RatioEngine は財務諸表から P/E, P/B, EV/EBITDA を計算します。
// 状態を持たないため、複数の goroutine から同時に使用できます。
type RatioEngine struct {
	codes  ItemCodes
	policy RatioPolicy
}

// NewRatioEngine は新しい RatioEngine を作成します。codes が nil の場合は DefaultItemCodes を使用します。
func NewRatioEngine(codes ItemCodes, policy RatioPolicy) *RatioEngine {
	if codes == nil {
		codes = DefaultItemCodes()
	}
	cp := make(ItemCodes, len(codes))
	for k, v := range codes {
		cp[k] = v
	}
	return &RatioEngine{codes: cp, policy: policy}
}

// LastTermValue は項目の最新期から最古期へ順に走査し、最初に存在する値を返します。
// 項目コードが未設定、項目が存在しない、または4期すべてが欠損の場合は NotFoundError を返します。
func (e *RatioEngine) LastTermValue(fs entity.FinancialStatement, t entity.FinancialValueType) (entity.Worth, error) {
	code, ok := e.codes[t]
	if !ok || code == "" {
		return entity.Worth{}, domain.NewNotFoundError(t.String(), "no item code configured")
	}
	item, ok := fs.Item(code)
	if !ok {
		return entity.Worth{}, domain.NewNotFoundError(t.String(), "item "+code+" missing from statement")
	}
	w, ok := item.Latest()
	if !ok {
		return entity.Worth{}, domain.NewNotFoundError(t.String(), "no value in any of the last four terms")
	}
	return w, nil
}

func (e *RatioEngine) value(op string, fs entity.FinancialStatement, t entity.FinancialValueType) (decimal.Decimal, error) {
	w, err := e.LastTermValue(fs, t)
	if err != nil {
		return decimal.Decimal{}, domain.NewFailureError(op, t.String()+" unavailable", err)
	}
	return w.Amount(), nil
}

func (e *RatioEngine) checkCurrency(op string, fs entity.FinancialStatement, marketValue entity.Worth) error {
	if fs.Currency() != marketValue.Currency() {
		return domain.NewFailureError(op,
			fmt.Sprintf("market value in %s but statement in %s", marketValue.Currency(), fs.Currency()), nil)
	}
	return nil
}

func divide(op, what string, num, den decimal.Decimal) (decimal.Decimal, error) {
	if den.IsZero() {
		return decimal.Decimal{}, domain.NewFailureError(op, what+" is zero", nil)
	}
	return num.DivRound(den, ratioScale), nil
}

// PriceEarnings は 時価総額 / 純利益 を返します。
func (e *RatioEngine) PriceEarnings(fs entity.FinancialStatement, marketValue entity.Worth) (decimal.Decimal, error) {
	const op = "PriceEarnings"
	if err := e.checkCurrency(op, fs, marketValue); err != nil {
		return decimal.Decimal{}, err
	}
	if marketValue.Amount().IsZero() {
		return decimal.Decimal{}, domain.NewFailureError(op, "market value is zero", nil)
	}
	profit, err := e.value(op, fs, entity.NetProfit)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return divide(op, "net profit", marketValue.Amount(), profit)
}

// PriceToBook は 時価総額 / 自己資本 を返します。自己資本の定義は RatioPolicy.Book に従います。
func (e *RatioEngine) PriceToBook(fs entity.FinancialStatement, marketValue entity.Worth) (decimal.Decimal, error) {
	const op = "PriceToBook"
	if err := e.checkCurrency(op, fs, marketValue); err != nil {
		return decimal.Decimal{}, err
	}
	book, err := e.bookValue(op, fs)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return divide(op, "book value", marketValue.Amount(), book)
}

func (e *RatioEngine) bookValue(op string, fs entity.FinancialStatement) (decimal.Decimal, error) {
	switch e.policy.Book {
	case BookAssetsMinusLiabilities:
		assets, err := e.value(op, fs, entity.TotalAssets)
		if err != nil {
			return decimal.Decimal{}, err
		}
		short, err := e.value(op, fs, entity.ShortTermLiabilities)
		if err != nil {
			return decimal.Decimal{}, err
		}
		long, err := e.value(op, fs, entity.LongTermLiabilities)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return assets.Sub(short).Sub(long), nil
	default:
		return e.value(op, fs, entity.ParentShareholdersCapital)
	}
}

// EnterpriseValue は RatioPolicy.EnterpriseValue に従って企業価値を計算します。
func (e *RatioEngine) EnterpriseValue(fs entity.FinancialStatement, marketValue entity.Worth) (decimal.Decimal, error) {
	const op = "EnterpriseValue"
	if err := e.checkCurrency(op, fs, marketValue); err != nil {
		return decimal.Decimal{}, err
	}
	ev := marketValue.Amount()
	add := []entity.FinancialValueType{entity.ShortTermFinancialLoans, entity.LongTermFinancialLoans}
	sub := []entity.FinancialValueType{entity.CashAndCashEquivalents}
	if e.policy.EnterpriseValue == EVNetDebtLessInvestments {
		sub = append(sub, entity.ShortTermFinancialInvestments, entity.FinancialInvestments)
	}
	for _, t := range add {
		v, err := e.value(op, fs, t)
		if err != nil {
			return decimal.Decimal{}, err
		}
		ev = ev.Add(v)
	}
	for _, t := range sub {
		v, err := e.value(op, fs, t)
		if err != nil {
			return decimal.Decimal{}, err
		}
		ev = ev.Sub(v)
	}
	return ev, nil
}

// EBITDA は RatioPolicy.EBITDA に従って EBITDA を計算します。
func (e *RatioEngine) EBITDA(fs entity.FinancialStatement) (decimal.Decimal, error) {
	const op = "EBITDA"
	gross, err := e.value(op, fs, entity.GrossProfit)
	if err != nil {
		return decimal.Decimal{}, err
	}
	amortization, err := e.value(op, fs, entity.Amortization)
	if err != nil {
		return decimal.Decimal{}, err
	}
	total := gross.Add(amortization)
	for _, t := range []entity.FinancialValueType{
		entity.AdministrativeCosts,
		entity.MarketingCosts,
		entity.ResearchAndDevelopmentCosts,
	} {
		v, err := e.value(op, fs, t)
		if err != nil {
			return decimal.Decimal{}, err
		}
		if e.policy.EBITDA == EBITDAGrossLessCosts {
			total = total.Sub(v)
		} else {
			total = total.Add(v)
		}
	}
	return total, nil
}

// EvEbitda は 企業価値 / EBITDA を返します。
func (e *RatioEngine) EvEbitda(fs entity.FinancialStatement, marketValue entity.Worth) (decimal.Decimal, error) {
	const op = "EvEbitda"
	ev, err := e.EnterpriseValue(fs, marketValue)
	if err != nil {
		return decimal.Decimal{}, domain.NewFailureError(op, "enterprise value unavailable", err)
	}
	ebitda, err := e.EBITDA(fs)
	if err != nil {
		return decimal.Decimal{}, domain.NewFailureError(op, "EBITDA unavailable", err)
	}
	return divide(op, "EBITDA", ev, ebitda)
}

// Compute は3つの比率をそれぞれ独立に計算します。
// 計算できなかった比率は未定義のまま残し、その理由を errs に返します。
func (e *RatioEngine) Compute(fs entity.FinancialStatement, marketValue entity.Worth, asOfTerm string) (entity.CompanyFinancialRatios, []error) {
	var (
		out  = entity.CompanyFinancialRatios{AsOfTerm: asOfTerm}
		errs []error
	)
	if v, err := e.PriceEarnings(fs, marketValue); err != nil {
		errs = append(errs, err)
	} else {
		out.PriceEarnings = decimal.NewNullDecimal(v)
	}
	if v, err := e.PriceToBook(fs, marketValue); err != nil {
		errs = append(errs, err)
	} else {
		out.PriceToBook = decimal.NewNullDecimal(v)
	}
	if v, err := e.EvEbitda(fs, marketValue); err != nil {
		errs = append(errs, err)
	} else {
		out.EvEbitda = decimal.NewNullDecimal(v)
	}
	return out, errs
}
