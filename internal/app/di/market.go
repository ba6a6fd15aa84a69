// Package di provides dependency injection factories for creating application components.
package di

import (
	"fmt"

	"bist_valuation/internal/feature/valuation/adapters/isyatirim"
	infrahttp "bist_valuation/internal/platform/http"
	"bist_valuation/internal/shared/ratelimiter"
)

// NewMarketSource creates an isyatirim client with a retrying HTTP client and a shared rate limiter.
func NewMarketSource() (*isyatirim.Client, error) {
	cfg, err := isyatirim.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("isyatirim config: %w", err)
	}
	httpClient := infrahttp.NewHTTPClient(cfg.Timeout, cfg.Retries)
	limiter := ratelimiter.NewPerSecond(cfg.RequestsPerSecond, 1)
	return isyatirim.NewClient(cfg, httpClient, limiter), nil
}
