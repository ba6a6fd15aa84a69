package dto

import "github.com/shopspring/decimal"

// CompanyResponse は企業1件のレスポンスDTOです。
// 金額と倍率は精度を保つため文字列で返し、値が無い場合は null になります。
type CompanyResponse struct {
	Symbol               string              `json:"symbol"`                 // 銘柄コード
	Name                 string              `json:"name"`                   // 企業名
	PublicOwnershipRatio float64             `json:"public_ownership_ratio"` // 浮動株比率（%）
	Currency             string              `json:"currency"`               // 評価額の通貨
	LastPrice            decimal.NullDecimal `json:"last_price"`             // 終値
	MarketValue          decimal.NullDecimal `json:"market_value"`           // 時価総額
	Capital              decimal.NullDecimal `json:"capital"`                // 資本金
	PriceEarnings        decimal.NullDecimal `json:"price_earnings"`         // F/K
	PriceToBook          decimal.NullDecimal `json:"price_to_book"`          // PD/DD
	EvEbitda             decimal.NullDecimal `json:"ev_ebitda"`              // FD/FAVÖK
	AsOfTerm             string              `json:"as_of_term,omitempty"`   // 倍率の基準期
}
