// Package isyatirim は isyatirim.com.tr から業種・企業・財務・価格データを取得します。
package isyatirim

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	defaultSectorURL     = "https://www.isyatirim.com.tr/tr-tr/analiz/hisse/Sayfalar/Temel-Degerler-Ve-Oranlar.aspx?sektor={SectorId}"
	defaultFinancialsURL = "https://www.isyatirim.com.tr/_layouts/15/IsYatirim.Website/Common/Data.aspx/MaliTablo" +
		"?companyCode={Symbol}&exchange={Currency}&financialGroup=XI_29" +
		"&year1={Year1}&period1={Period1}&year2={Year2}&period2={Period2}" +
		"&year3={Year3}&period3={Period3}&year4={Year4}&period4={Period4}"
	defaultPriceURL   = "https://www.isyatirim.com.tr/_layouts/15/IsYatirim.Website/Common/Data.aspx/HisseTekil?hisse={Symbol}&startdate={StartDate}&enddate={EndDate}"
	defaultCompanyURL = "https://www.isyatirim.com.tr/tr-tr/analiz/hisse/Sayfalar/sirket-karti.aspx?hisse={Symbol}"
)

// Config は isyatirim クライアントの設定です。
type Config struct {
	SectorURL     string `validate:"required,url,contains={SectorId}"`
	FinancialsURL string `validate:"required,url,contains={Symbol}"`
	PriceURL      string `validate:"required,url,contains={Symbol}"`
	CompanyURL    string `validate:"required,url,contains={Symbol}"`

	// SectorListID は業種ドロップダウンを読み取るページの業種IDです。
	SectorListID int `validate:"gt=0"`

	// 企業詳細ページのセレクタ
	NameSelector      string `validate:"required"`
	TermSelector      string `validate:"required"`
	OwnershipSelector string `validate:"required"`

	UserAgent         string
	Timeout           time.Duration `validate:"gt=0"`
	RequestsPerSecond float64       `validate:"gt=0"`
	Retries           int           `validate:"gte=0,lte=10"`
	PriceLookback     time.Duration `validate:"gt=0"`

	// 金額の単位。取得値に掛けて1通貨単位に揃えます。
	// 財務諸表（MaliTablo）と価格系列の時価総額・資本金はいずれも1通貨単位で公開されます。
	FinancialsScale float64 `validate:"gt=0"`
	PriceScale      float64 `validate:"gt=0"`
}

// DefaultConfig は本番サイト向けの既定値を返します。
func DefaultConfig() Config {
	return Config{
		SectorURL:         defaultSectorURL,
		FinancialsURL:     defaultFinancialsURL,
		PriceURL:          defaultPriceURL,
		CompanyURL:        defaultCompanyURL,
		SectorListID:      1,
		NameSelector:      "div.company-header h1",
		TermSelector:      "#ddlMaliTabloDonem1 option",
		OwnershipSelector: "#ortaklikYapisi td.fiili-dolasim",
		UserAgent:         "bist-valuation/1.0",
		Timeout:           15 * time.Second,
		RequestsPerSecond: 4,
		Retries:           6,
		PriceLookback:     14 * 24 * time.Hour,
		FinancialsScale:   1,
		PriceScale:        1,
	}
}

// LoadConfig は環境変数から設定を読み込みます。未設定の項目は既定値のままです。
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("ISYATIRIM_SECTOR_URL", &cfg.SectorURL)
	setString("ISYATIRIM_FINANCIALS_URL", &cfg.FinancialsURL)
	setString("ISYATIRIM_PRICE_URL", &cfg.PriceURL)
	setString("ISYATIRIM_COMPANY_URL", &cfg.CompanyURL)
	setString("ISYATIRIM_NAME_SELECTOR", &cfg.NameSelector)
	setString("ISYATIRIM_TERM_SELECTOR", &cfg.TermSelector)
	setString("ISYATIRIM_OWNERSHIP_SELECTOR", &cfg.OwnershipSelector)
	setString("ISYATIRIM_USER_AGENT", &cfg.UserAgent)

	if v := os.Getenv("ISYATIRIM_SECTOR_LIST_ID"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ISYATIRIM_SECTOR_LIST_ID: %w", err))
		}
		cfg.SectorListID = n
	}
	if v := os.Getenv("ISYATIRIM_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ISYATIRIM_RETRIES: %w", err))
		}
		cfg.Retries = n
	}
	if v := os.Getenv("ISYATIRIM_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("ISYATIRIM_RPS: %w", err))
		}
		cfg.RequestsPerSecond = f
	}
	if v := os.Getenv("ISYATIRIM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ISYATIRIM_TIMEOUT: %w", err))
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("ISYATIRIM_PRICE_LOOKBACK"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ISYATIRIM_PRICE_LOOKBACK: %w", err))
		}
		cfg.PriceLookback = d
	}
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
			*dst = f
		}
	}
	setFloat("ISYATIRIM_FINANCIALS_SCALE", &cfg.FinancialsScale)
	setFloat("ISYATIRIM_PRICE_SCALE", &cfg.PriceScale)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate は設定値を検証します。
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid isyatirim config: %w", err)
	}
	return nil
}
