package api

import (
	"context"

	"ytanalyzer/internal/logging"
	"ytanalyzer/internal/metrics"
	"ytanalyzer/internal/services"
	"ytanalyzer/internal/store"
)

// ComputeBrandMetrics computes and caches the KPI bundle of one competitor.
// Missing data yields zeroed KPIs with data-quality flags, never an error.
func (c *Core) ComputeBrandMetrics(ctx context.Context, competitorID int64) Result[*metrics.Bundle] {
	return invoke(ctx, c, "compute_brand_metrics", func(ctx context.Context) (*metrics.Bundle, error) {
		ctx = services.WithCompetitorID(ctx, competitorID)
		bundle, err := c.metrics.BrandMetrics(ctx, competitorID)
		if err != nil {
			return nil, err
		}
		c.persist(ctx, bundle)
		return bundle, nil
	})
}

// ComputeCountryMetrics computes and caches the KPI bundle of every
// competitor in a country.
func (c *Core) ComputeCountryMetrics(ctx context.Context, country string) Result[*metrics.Bundle] {
	return invoke(ctx, c, "compute_country_metrics", func(ctx context.Context) (*metrics.Bundle, error) {
		bundle, err := c.metrics.CountryMetrics(ctx, country)
		if err != nil {
			return nil, err
		}
		c.persist(ctx, bundle)
		return bundle, nil
	})
}

// VerifyOrganicPaidSplit compares the service split with a direct count.
func (c *Core) VerifyOrganicPaidSplit(ctx context.Context, competitorID int64) Result[metrics.SplitCheck] {
	return invoke(ctx, c, "verify_organic_paid_split", func(ctx context.Context) (metrics.SplitCheck, error) {
		return c.metrics.VerifySplit(services.WithCompetitorID(ctx, competitorID), competitorID)
	})
}

// Countries lists the countries with at least one competitor.
func (c *Core) Countries(ctx context.Context) Result[[]store.CountryCount] {
	return invoke(ctx, c, "countries", func(ctx context.Context) ([]store.CountryCount, error) {
		return c.metrics.Countries(ctx)
	})
}

func (c *Core) persist(ctx context.Context, bundle *metrics.Bundle) {
	if err := c.metrics.Persist(ctx, bundle); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "metrics cache not updated", "metrics_persist_failed",
			logging.Error(err),
			logging.Hint("check that the primary database is writable"),
			logging.Impact("cached analysis results are stale"),
		)
	}
}
