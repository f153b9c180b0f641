package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SaveCompetitorAnalysis caches a competitor KPI bundle, replacing the previous one.
func (s *Store) SaveCompetitorAnalysis(ctx context.Context, competitorID int64, paidThreshold int, metricsJSON string, at time.Time) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO competitor_analysis_result (competitor_id, analysis_date, paid_threshold, metrics_json)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(competitor_id) DO UPDATE SET
            analysis_date = excluded.analysis_date,
            paid_threshold = excluded.paid_threshold,
            metrics_json = excluded.metrics_json`,
		competitorID, formatTime(at), paidThreshold, metricsJSON,
	)
	if err != nil {
		return fmt.Errorf("save competitor analysis: %w", err)
	}
	return nil
}

// SaveCountryAnalysis caches a country KPI bundle, replacing the previous one.
func (s *Store) SaveCountryAnalysis(ctx context.Context, country string, paidThreshold int, metricsJSON string, at time.Time) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO country_analysis_result (country, analysis_date, paid_threshold, metrics_json)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(country) DO UPDATE SET
            analysis_date = excluded.analysis_date,
            paid_threshold = excluded.paid_threshold,
            metrics_json = excluded.metrics_json`,
		strings.TrimSpace(country), formatTime(at), paidThreshold, metricsJSON,
	)
	if err != nil {
		return fmt.Errorf("save country analysis: %w", err)
	}
	return nil
}

// CompetitorAnalysis returns the cached bundle for a competitor, or nil, nil.
func (s *Store) CompetitorAnalysis(ctx context.Context, competitorID int64) (*AnalysisResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT competitor_id, analysis_date, paid_threshold, metrics_json
         FROM competitor_analysis_result WHERE competitor_id = ?`, competitorID)
	return scanAnalysis(row, "competitor")
}

// CountryAnalysis returns the cached bundle for a country, or nil, nil.
func (s *Store) CountryAnalysis(ctx context.Context, country string) (*AnalysisResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT country, analysis_date, paid_threshold, metrics_json
         FROM country_analysis_result WHERE country = ?`, strings.TrimSpace(country))
	return scanAnalysis(row, "country")
}

func scanAnalysis(row *sql.Row, scope string) (*AnalysisResult, error) {
	var (
		key      any
		dateRaw  string
		analysis AnalysisResult
	)
	err := row.Scan(&key, &dateRaw, &analysis.PaidThreshold, &analysis.MetricsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s analysis: %w", scope, err)
	}
	switch k := key.(type) {
	case int64:
		analysis.Key = strconv.FormatInt(k, 10)
	case string:
		analysis.Key = k
	case []byte:
		analysis.Key = string(k)
	}
	if t, err := parseTimeString(dateRaw); err == nil {
		analysis.AnalysisDate = t
	}
	return &analysis, nil
}
