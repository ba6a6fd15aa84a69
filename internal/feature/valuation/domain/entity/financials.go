package entity

import (
	"github.com/shopspring/decimal"

	"bist_valuation/internal/feature/valuation/domain"
)

// FinancialValueType names a financial statement line item independent of
// the upstream item code it is published under.
type FinancialValueType int

const (
	NetProfit FinancialValueType = iota
	OperationProfit
	TotalAssets
	ShortTermLiabilities
	LongTermLiabilities
	CashAndCashEquivalents
	ShortTermFinancialInvestments
	FinancialInvestments
	ShortTermFinancialLoans
	LongTermFinancialLoans
	GrossProfit
	Amortization
	AdministrativeCosts
	MarketingCosts
	ResearchAndDevelopmentCosts
	ParentShares
	ParentShareholdersCapital
)

var financialValueTypeNames = [...]string{
	NetProfit:                     "NetProfit",
	OperationProfit:               "OperationProfit",
	TotalAssets:                   "TotalAssets",
	ShortTermLiabilities:          "ShortTermLiabilities",
	LongTermLiabilities:           "LongTermLiabilities",
	CashAndCashEquivalents:        "CashAndCashEquivalents",
	ShortTermFinancialInvestments: "ShortTermFinancialInvestments",
	FinancialInvestments:          "FinancialInvestments",
	ShortTermFinancialLoans:       "ShortTermFinancialLoans",
	LongTermFinancialLoans:        "LongTermFinancialLoans",
	GrossProfit:                   "GrossProfit",
	Amortization:                  "Amortization",
	AdministrativeCosts:           "AdministrativeCosts",
	MarketingCosts:                "MarketingCosts",
	ResearchAndDevelopmentCosts:   "ResearchAndDevelopmentCosts",
	ParentShares:                  "ParentShares",
	ParentShareholdersCapital:     "ParentShareholdersCapital",
}

func (t FinancialValueType) String() string {
	if t < 0 || int(t) >= len(financialValueTypeNames) {
		return "FinancialValueType(unknown)"
	}
	return financialValueTypeNames[t]
}

// FinancialsByTerm holds one line item across the four comparable terms,
// ordered oldest (index 0) to newest (index 3). An invalid slot means the
// value is unknown, which is different from zero.
type FinancialsByTerm struct {
	terms    [4]decimal.NullDecimal
	currency Currency
}

// NewFinancialsByTerm builds a FinancialsByTerm tagged with currency.
func NewFinancialsByTerm(terms [4]decimal.NullDecimal, currency Currency) (FinancialsByTerm, error) {
	if _, err := ParseCurrency(string(currency)); err != nil {
		return FinancialsByTerm{}, err
	}
	return FinancialsByTerm{terms: terms, currency: currency}, nil
}

// Term returns the value of slot i (0 = oldest) and whether it is known.
func (f FinancialsByTerm) Term(i int) (decimal.Decimal, bool) {
	if i < 0 || i >= len(f.terms) {
		return decimal.Decimal{}, false
	}
	return f.terms[i].Decimal, f.terms[i].Valid
}

func (f FinancialsByTerm) Currency() Currency { return f.currency }

// Latest scans from the most recent term to the oldest and returns the first
// known value.
func (f FinancialsByTerm) Latest() (Worth, bool) {
	for i := len(f.terms) - 1; i >= 0; i-- {
		if f.terms[i].Valid {
			return Worth{amount: f.terms[i].Decimal, currency: f.currency}, true
		}
	}
	return Worth{}, false
}

// FinancialStatement is a set of line items keyed by upstream item code
// (e.g. "20CF" for net profit).
type FinancialStatement struct {
	items    map[string]FinancialsByTerm
	terms    [4]Term
	currency Currency
}

// NewFinancialStatement builds a statement for the given terms. Later items with
// a duplicate code replace earlier ones.
func NewFinancialStatement(terms [4]Term, currency Currency, items map[string]FinancialsByTerm) (FinancialStatement, error) {
	if _, err := ParseCurrency(string(currency)); err != nil {
		return FinancialStatement{}, err
	}
	for i := 1; i < len(terms); i++ {
		if !terms[i-1].Before(terms[i]) {
			return FinancialStatement{}, domain.NewValidationError("terms", terms[i].String(), domain.ErrTermFormat)
		}
	}
	cp := make(map[string]FinancialsByTerm, len(items))
	for code, v := range items {
		cp[code] = v
	}
	return FinancialStatement{items: cp, terms: terms, currency: currency}, nil
}

// Item returns the line item published under code.
func (s FinancialStatement) Item(code string) (FinancialsByTerm, bool) {
	v, ok := s.items[code]
	return v, ok
}

func (s FinancialStatement) Terms() [4]Term { return s.terms }

func (s FinancialStatement) Currency() Currency { return s.currency }

func (s FinancialStatement) Len() int { return len(s.items) }
