// Package handler は valuation フィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"bist_valuation/internal/feature/valuation/domain"
	"bist_valuation/internal/feature/valuation/domain/entity"
	"bist_valuation/internal/feature/valuation/transport/http/dto"
	"bist_valuation/internal/feature/valuation/usecase"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ValuationUsecase は読み取りユースケースのインターフェースです。
// インターフェースは利用者（handler）側で定義します。
type ValuationUsecase interface {
	ListCompanies(ctx context.Context, rawCurrency string) ([]entity.Company, entity.Currency, error)
	GetCompany(ctx context.Context, rawSymbol, rawCurrency string) (entity.Company, entity.Currency, error)
	ListSectors(ctx context.Context) ([]entity.Sector, error)
}

// ValuationHandler は企業と業種の参照リクエストを処理します。
type ValuationHandler struct {
	uc ValuationUsecase
}

// NewValuationHandler は新しい ValuationHandler を生成します。
func NewValuationHandler(uc ValuationUsecase) *ValuationHandler {
	return &ValuationHandler{uc: uc}
}

// ListCompanies は全企業を指定通貨で返します。
//
// エンドポイント例:
// GET /companies?currency=USD
func (h *ValuationHandler) ListCompanies(c *gin.Context) {
	companies, currency, err := h.uc.ListCompanies(c.Request.Context(), c.Query("currency"))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]dto.CompanyResponse, 0, len(companies))
	for _, co := range companies {
		out = append(out, toCompanyResponse(co, currency))
	}
	c.JSON(http.StatusOK, out)
}

// GetCompany は1企業を指定通貨で返します。
//
// エンドポイント例:
// GET /company/THYAO?currency=TRY
func (h *ValuationHandler) GetCompany(c *gin.Context) {
	co, currency, err := h.uc.GetCompany(c.Request.Context(), c.Param("symbol"), c.Query("currency"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCompanyResponse(co, currency))
}

// ListSectors は業種と業種平均 F/K, PD/DD を返します。
//
// エンドポイント例:
// GET /sectors
func (h *ValuationHandler) ListSectors(c *gin.Context) {
	sectors, err := h.uc.ListSectors(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]dto.SectorResponse, 0, len(sectors))
	for _, s := range sectors {
		out = append(out, dto.SectorResponse{
			ID:        s.ID.Int(),
			Name:      s.Name.String(),
			AveragePE: s.AveragePE,
			AveragePB: s.AveragePB,
		})
	}
	c.JSON(http.StatusOK, out)
}

func toCompanyResponse(co entity.Company, currency entity.Currency) dto.CompanyResponse {
	res := dto.CompanyResponse{
		Symbol:               co.Symbol.String(),
		Name:                 co.Name.String(),
		PublicOwnershipRatio: co.PublicOwnershipRatio.Float64(),
		Currency:             currency.String(),
		PriceEarnings:        co.Ratios.PriceEarnings,
		PriceToBook:          co.Ratios.PriceToBook,
		EvEbitda:             co.Ratios.EvEbitda,
		AsOfTerm:             co.Ratios.AsOfTerm,
	}
	if v, ok := co.ValuationsIn(currency); ok {
		res.LastPrice = decimal.NewNullDecimal(v.LastPrice.Amount())
		res.MarketValue = decimal.NewNullDecimal(v.MarketValue.Amount())
		res.Capital = decimal.NewNullDecimal(v.Capital.Amount())
	}
	return res
}

// writeError はエラー種別をHTTPステータスに変換します。
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, usecase.ErrCompanyNotFound):
		status = http.StatusNotFound
	default:
		slog.Error("valuation request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, dto.ErrorResponse{Error: err.Error()})
}
