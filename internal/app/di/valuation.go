package di

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	valuationadapters "bist_valuation/internal/feature/valuation/adapters"
	"bist_valuation/internal/feature/valuation/domain/entity"
	"bist_valuation/internal/feature/valuation/usecase"
	"bist_valuation/internal/platform/cache"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NewValuationStore creates the valuation repository.
// If Redis is available, reads go through the Redis cache; otherwise the cache is bypassed.
func NewValuationStore(db *gorm.DB, rdb *redis.Client) cache.ValuationStore {
	repo := valuationadapters.NewValuationRepository(db)
	// TTL 0 は次の取り込み（正時）まで
	return cache.NewCachingValuationRepository(rdb, 0, repo, "valuation")
}

// LoadAggregatorConfig は INGEST_* 環境変数から集約設定を読み込みます。未設定の項目は既定値です。
func LoadAggregatorConfig() (usecase.AggregatorConfig, error) {
	cfg := usecase.DefaultAggregatorConfig()
	var errs []error

	if v := os.Getenv("INGEST_SECTOR_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("INGEST_SECTOR_CONCURRENCY must be a positive integer: %q", v))
		} else {
			cfg.SectorConcurrency = n
		}
	}
	if v := os.Getenv("INGEST_COMPANY_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("INGEST_COMPANY_CONCURRENCY must be a positive integer: %q", v))
		} else {
			cfg.CompanyConcurrency = n
		}
	}
	if v := os.Getenv("INGEST_ENRICH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("INGEST_ENRICH must be a boolean: %q", v))
		} else {
			cfg.Enrich = b
		}
	}
	if v := os.Getenv("INGEST_RATIO_CURRENCY"); v != "" {
		c, err := entity.ParseCurrency(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("INGEST_RATIO_CURRENCY: %w", err))
		} else {
			cfg.RatioCurrency = c
		}
	}

	if v := os.Getenv("INGEST_LISTING_SCALE"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || !d.IsPositive() {
			errs = append(errs, fmt.Errorf("INGEST_LISTING_SCALE must be a positive number: %q", v))
		} else {
			cfg.ListingScale = d
		}
	}

	return cfg, errors.Join(errs...)
}

// LoadRatioPolicy は RATIO_* 環境変数から比率の定義を読み込みます。
//
//	RATIO_BOOK_BASIS   = parent_equity | assets_minus_liabilities
//	RATIO_EV_BASIS     = net_debt | net_debt_less_investments
//	RATIO_EBITDA_BASIS = sum_of_lines | gross_less_costs
func LoadRatioPolicy() (usecase.RatioPolicy, error) {
	var p usecase.RatioPolicy
	var errs []error

	switch v := strings.ToLower(os.Getenv("RATIO_BOOK_BASIS")); v {
	case "", "parent_equity":
		p.Book = usecase.BookParentEquity
	case "assets_minus_liabilities":
		p.Book = usecase.BookAssetsMinusLiabilities
	default:
		errs = append(errs, fmt.Errorf("unknown RATIO_BOOK_BASIS %q", v))
	}

	switch v := strings.ToLower(os.Getenv("RATIO_EV_BASIS")); v {
	case "", "net_debt":
		p.EnterpriseValue = usecase.EVNetDebt
	case "net_debt_less_investments":
		p.EnterpriseValue = usecase.EVNetDebtLessInvestments
	default:
		errs = append(errs, fmt.Errorf("unknown RATIO_EV_BASIS %q", v))
	}

	switch v := strings.ToLower(os.Getenv("RATIO_EBITDA_BASIS")); v {
	case "", "sum_of_lines":
		p.EBITDA = usecase.EBITDASumOfLines
	case "gross_less_costs":
		p.EBITDA = usecase.EBITDAGrossLessCosts
	default:
		errs = append(errs, fmt.Errorf("unknown RATIO_EBITDA_BASIS %q", v))
	}

	return p, errors.Join(errs...)
}
