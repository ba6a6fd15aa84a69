package isyatirim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"bist_valuation/internal/feature/valuation/adapters/isyatirim/dto"
	"bist_valuation/internal/feature/valuation/domain"
	"bist_valuation/internal/feature/valuation/domain/entity"
	"bist_valuation/internal/feature/valuation/usecase"
	httpx "bist_valuation/internal/platform/http"
	"bist_valuation/internal/shared/ratelimiter"
)

// 価格系列エンドポイントの日付形式 (dd-MM-yyyy)
const priceDateLayout = "02-01-2006"

// Client は isyatirim のページと JSON エンドポイントから MarketSource を実装します。
type Client struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.RateLimiterInterface
	now     func() time.Time
}

// ClientがMarketSourceを実装していることをコンパイル時に検証します。
var _ usecase.MarketSource = (*Client)(nil)

// NewClient は指定された設定・HTTPクライアント・レートリミッタで Client を生成します。
// limiter はすべてのリクエストの前に待機されます。
func NewClient(cfg Config, client *http.Client, limiter ratelimiter.RateLimiterInterface) *Client {
	return &Client{cfg: cfg, client: client, limiter: limiter, now: time.Now}
}

// expand はテンプレート中のプレースホルダをクエリエスケープした値で置換します。
func expand(template string, pairs ...string) string {
	args := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		args = append(args, "{"+pairs[i]+"}", url.QueryEscape(pairs[i+1]))
	}
	return strings.NewReplacer(args...).Replace(template)
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	res, err := c.client.Do(req)
	if err != nil {
		var se *httpx.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, domain.NewNotFoundError(req.URL.Path, "http 404")
		}
		return nil, err
	}
	if res.StatusCode >= 400 {
		closeBody(res)
		if res.StatusCode == http.StatusNotFound {
			return nil, domain.NewNotFoundError(req.URL.Path, "http 404")
		}
		return nil, fmt.Errorf("isyatirim http %d", res.StatusCode)
	}
	return res, nil
}

func closeBody(res *http.Response) {
	if err := res.Body.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err)
	}
}

func (c *Client) document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	res, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer closeBody(res)

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	res, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer closeBody(res)

	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func (c *Client) sectorURL(id int) string {
	return expand(c.cfg.SectorURL, "SectorId", strconv.Itoa(id))
}

// ListSectors は業種ドロップダウン (#ddlSektor) の項目を返します。
func (c *Client) ListSectors(ctx context.Context) ([]usecase.SectorOption, error) {
	doc, err := c.document(ctx, c.sectorURL(c.cfg.SectorListID))
	if err != nil {
		return nil, err
	}
	return parseSectorOptions(doc)
}

// FetchSectorPage は業種ページの企業行と業種平均を返します。
func (c *Client) FetchSectorPage(ctx context.Context, id entity.SectorID) (usecase.SectorPage, error) {
	doc, err := c.document(ctx, c.sectorURL(id.Int()))
	if err != nil {
		return usecase.SectorPage{}, err
	}
	return parseSectorPage(doc)
}

// FetchCompanyTag は企業詳細ページから名称・最新決算期・浮動株比率を返します。
func (c *Client) FetchCompanyTag(ctx context.Context, symbol entity.Symbol) (usecase.CompanyTag, error) {
	doc, err := c.document(ctx, expand(c.cfg.CompanyURL, "Symbol", symbol.String()))
	if err != nil {
		return usecase.CompanyTag{}, err
	}
	return parseCompanyTag(doc, c.cfg, symbol)
}

// FetchFinancials は4期分の財務諸表を currency 建てで返します。
func (c *Client) FetchFinancials(ctx context.Context, symbol entity.Symbol, terms [4]entity.Term, currency entity.Currency) (entity.FinancialStatement, error) {
	pairs := []string{"Symbol", symbol.String(), "Currency", currency.String()}
	for i, t := range terms {
		n := strconv.Itoa(i + 1)
		pairs = append(pairs, "Year"+n, strconv.Itoa(t.Year), "Period"+n, strconv.Itoa(t.Month))
	}

	var body dto.FinancialsResponse
	if err := c.getJSON(ctx, expand(c.cfg.FinancialsURL, pairs...), &body); err != nil {
		return entity.FinancialStatement{}, fmt.Errorf("financials of %s: %w", symbol, err)
	}
	if len(body.Value) == 0 {
		return entity.FinancialStatement{}, domain.NewNotFoundError("financials", "empty statement for "+symbol.String())
	}

	items := make(map[string]entity.FinancialsByTerm, len(body.Value))
	for _, item := range body.Value {
		code := strings.TrimSpace(item.ItemCode)
		if code == "" {
			continue
		}
		vs := item.Terms()
		for i := range vs {
			vs[i] = scaleMoney(vs[i], c.cfg.FinancialsScale)
		}
		v, err := entity.NewFinancialsByTerm(vs, currency)
		if err != nil {
			return entity.FinancialStatement{}, err
		}
		items[code] = v
	}
	return entity.NewFinancialStatement(terms, currency, items)
}

// FetchLatestPrice は直近の価格系列の最後のエントリを返します。
func (c *Client) FetchLatestPrice(ctx context.Context, symbol entity.Symbol) (usecase.PriceSnapshot, error) {
	end := c.now()
	start := end.Add(-c.cfg.PriceLookback)
	u := expand(c.cfg.PriceURL,
		"Symbol", symbol.String(),
		"StartDate", start.Format(priceDateLayout),
		"EndDate", end.Format(priceDateLayout),
	)

	var body dto.PriceResponse
	if err := c.getJSON(ctx, u, &body); err != nil {
		return usecase.PriceSnapshot{}, fmt.Errorf("price series of %s: %w", symbol, err)
	}
	if len(body.Value) == 0 {
		return usecase.PriceSnapshot{}, domain.NewNotFoundError("price series", "empty series for "+symbol.String())
	}

	last := body.Value[len(body.Value)-1]
	return usecase.PriceSnapshot{
		Price:          last.PriceUSD.NullDecimal,
		MarketValue:    scaleMoney(last.MarketValueUSD.NullDecimal, c.cfg.PriceScale),
		PriceTRY:       last.ClosingTRY.NullDecimal,
		MarketValueTRY: scaleMoney(last.MarketValueTRY.NullDecimal, c.cfg.PriceScale),
		Capital:        scaleMoney(last.Capital.NullDecimal, c.cfg.PriceScale),
	}, nil
}

// scaleMoney は金額を1通貨単位に揃えます。scale が 1 または正でない場合はそのまま返します。
func scaleMoney(v decimal.NullDecimal, scale float64) decimal.NullDecimal {
	if !v.Valid || scale <= 0 || scale == 1 {
		return v
	}
	return decimal.NewNullDecimal(v.Decimal.Mul(decimal.NewFromFloat(scale)))
}
