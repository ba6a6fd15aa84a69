// Package adapters はバリュエーションの永続化を gorm で実装します。
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bist_valuation/internal/feature/valuation/domain/entity"
	"bist_valuation/internal/feature/valuation/usecase"
)

type valuationGorm struct {
	db *gorm.DB
}

var (
	_ usecase.ValuationRepository = (*valuationGorm)(nil)
	_ usecase.ValuationReader     = (*valuationGorm)(nil)
)

func NewValuationRepository(db *gorm.DB) *valuationGorm {
	return &valuationGorm{db: db}
}

type SectorModel struct {
	ID            int                 `gorm:"primaryKey;autoIncrement:false"`
	Name          string              `gorm:"size:128;not null"`
	PriceEarnings decimal.NullDecimal `gorm:"type:numeric(30,8)"`
	PriceToBook   decimal.NullDecimal `gorm:"type:numeric(30,8)"`
	UpdatedAt     time.Time
}

func (SectorModel) TableName() string {
	return "sectors"
}

type CompanyModel struct {
	Symbol               string              `gorm:"primaryKey;size:16"`
	SectorID             int                 `gorm:"not null;index"`
	Name                 string              `gorm:"size:256;not null"`
	PublicOwnershipRatio float64             `gorm:"not null;default:0"`
	PriceEarnings        decimal.NullDecimal `gorm:"type:numeric(30,8)"`
	PriceToBook          decimal.NullDecimal `gorm:"type:numeric(30,8)"`
	EvEbitda             decimal.NullDecimal `gorm:"type:numeric(30,8)"`
	AsOfTerm             string              `gorm:"size:8"`
	UpdatedAt            time.Time
}

func (CompanyModel) TableName() string {
	return "companies"
}

type CompanyValuationModel struct {
	Symbol      string          `gorm:"primaryKey;size:16"`
	Currency    string          `gorm:"primaryKey;size:3"`
	LastPrice   decimal.Decimal `gorm:"type:numeric(30,8);not null"`
	MarketValue decimal.Decimal `gorm:"type:numeric(30,8);not null"`
	Capital     decimal.Decimal `gorm:"type:numeric(30,8);not null"`
	UpdatedAt   time.Time
}

func (CompanyValuationModel) TableName() string {
	return "company_valuations"
}

// Models はマイグレーション対象のモデルです。
func Models() []any {
	return []any{&SectorModel{}, &CompanyModel{}, &CompanyValuationModel{}}
}

func toSectorModel(s entity.Sector) SectorModel {
	return SectorModel{
		ID:            s.ID.Int(),
		Name:          s.Name.String(),
		PriceEarnings: s.AveragePE,
		PriceToBook:   s.AveragePB,
	}
}

func toCompanyModel(sectorID entity.SectorID, c entity.Company) CompanyModel {
	return CompanyModel{
		Symbol:               c.Symbol.String(),
		SectorID:             sectorID.Int(),
		Name:                 c.Name.String(),
		PublicOwnershipRatio: c.PublicOwnershipRatio.Float64(),
		PriceEarnings:        c.Ratios.PriceEarnings,
		PriceToBook:          c.Ratios.PriceToBook,
		EvEbitda:             c.Ratios.EvEbitda,
		AsOfTerm:             c.Ratios.AsOfTerm,
	}
}

func toValuationModel(symbol entity.Symbol, v entity.CompanyValuations) CompanyValuationModel {
	return CompanyValuationModel{
		Symbol:      symbol.String(),
		Currency:    v.Currency.String(),
		LastPrice:   v.LastPrice.Amount(),
		MarketValue: v.MarketValue.Amount(),
		Capital:     v.Capital.Amount(),
	}
}

// UpsertSector は業種を ID で upsert します。
func (r *valuationGorm) UpsertSector(ctx context.Context, sector entity.Sector) (int64, error) {
	m := toSectorModel(sector)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "price_earnings", "price_to_book", "updated_at"}),
	}).Create(&m)
	if res.Error != nil {
		return 0, fmt.Errorf("upsert sector %d: %w", m.ID, res.Error)
	}
	return res.RowsAffected, nil
}

// UpsertCompanies は企業と通貨ごとの評価額を1トランザクションで upsert します。
// 戻り値は companies テーブルの影響行数です。
func (r *valuationGorm) UpsertCompanies(ctx context.Context, sectorID entity.SectorID, companies []entity.Company) (int64, error) {
	if len(companies) == 0 {
		return 0, nil
	}
	cms := make([]CompanyModel, 0, len(companies))
	var vms []CompanyValuationModel
	for _, c := range companies {
		cms = append(cms, toCompanyModel(sectorID, c))
		for _, v := range c.Valuations {
			vms = append(vms, toValuationModel(c.Symbol, v))
		}
	}

	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sector_id", "name", "public_ownership_ratio",
				"price_earnings", "price_to_book", "ev_ebitda", "as_of_term", "updated_at",
			}),
		}).Create(&cms)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected

		if len(vms) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "currency"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_price", "market_value", "capital", "updated_at"}),
		}).Create(&vms).Error
	})
	if err != nil {
		return 0, fmt.Errorf("upsert companies of sector %d: %w", sectorID.Int(), err)
	}
	return affected, nil
}

// ListSectors は業種を ID 順に返します。Companies は含みません。
func (r *valuationGorm) ListSectors(ctx context.Context) ([]entity.Sector, error) {
	var rows []SectorModel
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Sector, 0, len(rows))
	for _, m := range rows {
		s, err := entity.NewSector(entity.SectorID(m.ID), entity.Name(m.Name), m.PriceEarnings, m.PriceToBook, nil)
		if err != nil {
			return nil, fmt.Errorf("sector %d: %w", m.ID, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ListCompanies は企業を銘柄コード順に返します。評価額は currency のものだけを含みます。
func (r *valuationGorm) ListCompanies(ctx context.Context, currency entity.Currency) ([]entity.Company, error) {
	var rows []CompanyModel
	if err := r.db.WithContext(ctx).Order("symbol").Find(&rows).Error; err != nil {
		return nil, err
	}
	var vals []CompanyValuationModel
	if err := r.db.WithContext(ctx).Where("currency = ?", currency.String()).Find(&vals).Error; err != nil {
		return nil, err
	}
	bySymbol := make(map[string]CompanyValuationModel, len(vals))
	for _, v := range vals {
		bySymbol[v.Symbol] = v
	}

	out := make([]entity.Company, 0, len(rows))
	for _, m := range rows {
		var vs []CompanyValuationModel
		if v, ok := bySymbol[m.Symbol]; ok {
			vs = append(vs, v)
		}
		c, err := toCompany(m, vs)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// FindCompany は指定通貨の評価額を持つ企業を返します。
func (r *valuationGorm) FindCompany(ctx context.Context, symbol entity.Symbol, currency entity.Currency) (entity.Company, error) {
	var m CompanyModel
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol.String()).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Company{}, usecase.ErrCompanyNotFound
	}
	if err != nil {
		return entity.Company{}, err
	}

	var v CompanyValuationModel
	err = r.db.WithContext(ctx).
		Where("symbol = ? AND currency = ?", symbol.String(), currency.String()).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Company{}, fmt.Errorf("%w: no %s valuation for %s", usecase.ErrCompanyNotFound, currency, symbol)
	}
	if err != nil {
		return entity.Company{}, err
	}
	return toCompany(m, []CompanyValuationModel{v})
}

func toCompany(m CompanyModel, vals []CompanyValuationModel) (entity.Company, error) {
	vs := make([]entity.CompanyValuations, 0, len(vals))
	for _, v := range vals {
		cv, err := entity.NewCompanyValuations(v.LastPrice, v.MarketValue, v.Capital, entity.Currency(v.Currency))
		if err != nil {
			return entity.Company{}, fmt.Errorf("company %s: %w", m.Symbol, err)
		}
		vs = append(vs, cv)
	}
	ownership, err := entity.NewPublicOwnershipRatio(m.PublicOwnershipRatio)
	if err != nil {
		return entity.Company{}, fmt.Errorf("company %s: %w", m.Symbol, err)
	}
	ratios := entity.CompanyFinancialRatios{
		PriceEarnings: m.PriceEarnings,
		PriceToBook:   m.PriceToBook,
		EvEbitda:      m.EvEbitda,
		AsOfTerm:      m.AsOfTerm,
	}
	c, err := entity.NewCompany(entity.Symbol(m.Symbol), entity.Name(m.Name), ownership, ratios, vs...)
	if err != nil {
		return entity.Company{}, fmt.Errorf("company %s: %w", m.Symbol, err)
	}
	return c, nil
}
