// Package dto defines data transfer objects for the isyatirim JSON endpoints.
package dto

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Number is a JSON value published either as a string, a number or null.
// Empty, null and unparseable values decode to an invalid (unknown) decimal.
type Number struct {
	decimal.NullDecimal
}

func (n *Number) UnmarshalJSON(b []byte) error {
	n.NullDecimal = decimal.NullDecimal{}

	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	n.NullDecimal = decimal.NewNullDecimal(d)
	return nil
}

// FinancialsResponse represents the JSON response from the MaliTablo endpoint.
type FinancialsResponse struct {
	Value []FinancialItem `json:"value"`
}

// FinancialItem is one statement line across the four requested terms.
// Value1 belongs to the term sent as year1/period1, and so on.
type FinancialItem struct {
	ItemCode    string `json:"itemCode"`
	ItemDescTr  string `json:"itemDescTr"`
	ItemDescEng string `json:"itemDescEng"`
	Value1      Number `json:"value1"`
	Value2      Number `json:"value2"`
	Value3      Number `json:"value3"`
	Value4      Number `json:"value4"`
}

// Terms returns the four values in request order.
func (i FinancialItem) Terms() [4]decimal.NullDecimal {
	return [4]decimal.NullDecimal{
		i.Value1.NullDecimal,
		i.Value2.NullDecimal,
		i.Value3.NullDecimal,
		i.Value4.NullDecimal,
	}
}

// PriceResponse represents the JSON response from the HisseTekil endpoint.
// Entries are ordered by date, oldest first.
type PriceResponse struct {
	Value []PriceEntry `json:"value"`
}

// PriceEntry is one trading day of the price series.
type PriceEntry struct {
	Date           string `json:"HGDG_TARIH"`
	ClosingTRY     Number `json:"HGDG_KAPANIS"`
	PriceUSD       Number `json:"DOLAR_BAZLI_FIYAT"`
	Capital        Number `json:"SERMAYE"`
	MarketValueTRY Number `json:"PD"`
	MarketValueUSD Number `json:"PD_USD"`
}
