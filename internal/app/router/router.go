package router

import (
	valuationhandler "bist_valuation/internal/feature/valuation/transport/handler"
	"bist_valuation/internal/platform/http/handler"

	"github.com/gin-gonic/gin"
)

// NewRouter は参照 API のルーティングを構成します。参照系のみのため認証はありません。
func NewRouter(valuation *valuationhandler.ValuationHandler, db handler.Pinger) *gin.Engine {
	r := gin.Default()

	// 導通確認用
	r.GET("/livez", handler.Health)
	r.HEAD("/livez", handler.Health)
	// DB 疎通込みのヘルスチェック
	r.GET("/healthz", handler.Ready(db))
	r.HEAD("/healthz", handler.Ready(db))

	r.GET("/companies", valuation.ListCompanies)
	r.GET("/company/:symbol", valuation.GetCompany)
	r.GET("/sectors", valuation.ListSectors)

	return r
}
