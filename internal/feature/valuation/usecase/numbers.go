// Package usecase は企業バリュエーションの抽出・比率計算・集約のビジネスロジックを実装します。
package usecase

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var errEmptyNumber = errors.New("empty number")

// NumberFormat はスクレイピングしたテキスト中の数値表記（小数点と桁区切り）を表します。
// ゼロ値は TurkishNumberFormat として扱われます。
type NumberFormat struct {
	DecimalSeparator rune
	GroupSeparator   rune
}

var (
	// TurkishNumberFormat は tr-TR 表記（"1.234,56"）です。上場銘柄ページはこの表記です。
	TurkishNumberFormat = NumberFormat{DecimalSeparator: ',', GroupSeparator: '.'}
	// InvariantNumberFormat は "1,234.56" 表記です。
	InvariantNumberFormat = NumberFormat{DecimalSeparator: '.', GroupSeparator: ','}
)

func (f NumberFormat) orDefault() NumberFormat {
	if f.DecimalSeparator == 0 {
		return TurkishNumberFormat
	}
	return f
}

// normalize は桁区切り・空白・NBSP・% を取り除き、小数点を '.' に揃えます。
func (f NumberFormat) normalize(raw string) string {
	f = f.orDefault()
	return strings.Map(func(r rune) rune {
		switch r {
		case f.DecimalSeparator:
			return '.'
		case f.GroupSeparator, ' ', '\u00a0', '\t', '\n', '\r', '%':
			return -1
		}
		return r
	}, raw)
}

// ParseDecimal は raw を十進数として解析します。
func (f NumberFormat) ParseDecimal(raw string) (decimal.Decimal, error) {
	s := f.normalize(raw)
	if s == "" {
		return decimal.Decimal{}, errEmptyNumber
	}
	return decimal.NewFromString(s)
}

// ParseFloat は raw を float64 として解析します。比率（%）の列に使用します。
func (f NumberFormat) ParseFloat(raw string) (float64, error) {
	d, err := f.ParseDecimal(raw)
	if err != nil {
		return 0, err
	}
	v, _ := d.Float64()
	return v, nil
}
