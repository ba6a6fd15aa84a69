package usecase

import (
	"context"
	"errors"

	"bist_valuation/internal/feature/valuation/domain/entity"
)

// ErrCompanyNotFound は銘柄が存在しないか、指定通貨の評価額が無い場合に返されます。
var ErrCompanyNotFound = errors.New("company not found")

// ValuationReader は永続化済みのバリュエーションの読み取りレイヤーを抽象化します。
type ValuationReader interface {
	ListSectors(ctx context.Context) ([]entity.Sector, error)
	// ListCompanies は全企業を返します。各企業の Valuations は currency のものだけに絞られます。
	ListCompanies(ctx context.Context, currency entity.Currency) ([]entity.Company, error)
	// FindCompany は銘柄を検索します。見つからない場合は ErrCompanyNotFound を返します。
	FindCompany(ctx context.Context, symbol entity.Symbol, currency entity.Currency) (entity.Company, error)
}

// CompanyUsecase は REST API 向けの読み取りユースケースです。
type CompanyUsecase struct {
	reader ValuationReader
}

// NewCompanyUsecase は新しい CompanyUsecase を作成します。
func NewCompanyUsecase(reader ValuationReader) *CompanyUsecase {
	return &CompanyUsecase{reader: reader}
}

// parseCurrency は空文字を TRY として扱います。
func parseCurrency(raw string) (entity.Currency, error) {
	if raw == "" {
		return entity.TRY, nil
	}
	return entity.ParseCurrency(raw)
}

// ListCompanies は指定通貨で全企業を返します。
func (u *CompanyUsecase) ListCompanies(ctx context.Context, rawCurrency string) ([]entity.Company, entity.Currency, error) {
	currency, err := parseCurrency(rawCurrency)
	if err != nil {
		return nil, "", err
	}
	cs, err := u.reader.ListCompanies(ctx, currency)
	if err != nil {
		return nil, "", err
	}
	return cs, currency, nil
}

// GetCompany は指定通貨で1企業を返します。
func (u *CompanyUsecase) GetCompany(ctx context.Context, rawSymbol, rawCurrency string) (entity.Company, entity.Currency, error) {
	symbol, err := entity.NewSymbol(rawSymbol)
	if err != nil {
		return entity.Company{}, "", err
	}
	currency, err := parseCurrency(rawCurrency)
	if err != nil {
		return entity.Company{}, "", err
	}
	c, err := u.reader.FindCompany(ctx, symbol, currency)
	if err != nil {
		return entity.Company{}, "", err
	}
	return c, currency, nil
}

// ListSectors は業種と業種平均を返します。
func (u *CompanyUsecase) ListSectors(ctx context.Context) ([]entity.Sector, error) {
	return u.reader.ListSectors(ctx)
}
