package dto

import "github.com/shopspring/decimal"

// SectorResponse は業種1件のレスポンスDTOです。
type SectorResponse struct {
	ID        int                 `json:"id"`
	Name      string              `json:"name"`
	AveragePE decimal.NullDecimal `json:"average_pe"`
	AveragePB decimal.NullDecimal `json:"average_pb"`
}
