package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"ytanalyzer/internal/config"
	"ytanalyzer/internal/logging"
	"ytanalyzer/internal/services"
	"ytanalyzer/internal/store"
)

// splitTolerance is the largest accepted percentage point difference between
// the service split and a direct count.
const splitTolerance = 0.1

// Service computes KPI bundles. It only reads the video tables; Persist is
// the sole write path.
type Service struct {
	db       *sqlx.DB
	store    *store.Store
	settings *config.SettingsFile
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wraps the primary store connection for read queries.
func NewService(cfg *config.Config, st *store.Store, logger *slog.Logger) *Service {
	var settings *config.SettingsFile
	if cfg != nil {
		settings = cfg.SettingsStore()
	}
	return &Service{
		db:       sqlx.NewDb(st.DB(), "sqlite"),
		store:    st,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "metrics"),
		now:      time.Now,
	}
}

// Option overrides per-call settings.
type Option func(*options)

type options struct {
	threshold *int
}

// WithPaidThreshold replaces the settings.json threshold for one call.
func WithPaidThreshold(threshold int) Option {
	return func(o *options) {
		o.threshold = &threshold
	}
}

// scope restricts queries to one competitor or one country. Every query joins
// concurrent as c.
type scope struct {
	kind         string
	competitorID int64
	country      string
}

func (s scope) where(alias string) (string, any) {
	if s.kind == ScopeCountry {
		return "c.country = ?", s.country
	}
	return alias + ".concurrent_id = ?", s.competitorID
}

// BrandMetrics computes the bundle of one competitor. Only an unknown
// competitor is an error.
func (s *Service) BrandMetrics(ctx context.Context, competitorID int64, opts ...Option) (*Bundle, error) {
	competitor, err := s.store.GetCompetitor(ctx, competitorID)
	if err != nil {
		return nil, services.Wrap(services.ErrInternal, "metrics", "brand metrics", "load competitor", err)
	}
	if competitor == nil {
		return nil, services.Wrap(services.ErrNotFound, "metrics", "brand metrics", fmt.Sprintf("competitor %d not found", competitorID), nil)
	}
	ctx = services.WithCompetitorID(ctx, competitorID)
	bundle := &Bundle{Scope: ScopeCompetitor, CompetitorID: competitorID}
	s.compute(ctx, bundle, scope{kind: ScopeCompetitor, competitorID: competitorID}, opts)
	return bundle, nil
}

// CountryMetrics computes the bundle of every competitor in country.
func (s *Service) CountryMetrics(ctx context.Context, country string, opts ...Option) (*Bundle, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return nil, services.Wrap(services.ErrValidation, "metrics", "country metrics", "country is required", nil)
	}
	bundle := &Bundle{Scope: ScopeCountry, Country: country, Competitors: []CompetitorRef{}}
	competitors, err := s.store.CompetitorsByCountry(ctx, country)
	if err != nil {
		bundle.DataQuality.flag(FlagQueryFailed, err.Error())
	}
	for _, c := range competitors {
		bundle.Competitors = append(bundle.Competitors, CompetitorRef{ID: c.ID, Name: c.Name})
	}
	s.compute(ctx, bundle, scope{kind: ScopeCountry, country: country}, opts)
	return bundle, nil
}

// Countries lists countries with their competitor counts.
func (s *Service) Countries(ctx context.Context) ([]store.CountryCount, error) {
	return s.store.Countries(ctx)
}

func (s *Service) threshold(opts []Option) (int, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.threshold != nil {
		return *o.threshold, nil
	}
	return s.settings.PaidThreshold()
}

func (s *Service) compute(ctx context.Context, bundle *Bundle, sc scope, opts []Option) {
	logger := logging.WithContext(ctx, s.logger)
	bundle.ComputedAt = s.now().UTC()
	if bundle.DataQuality.Flags == nil {
		bundle.DataQuality.Flags = []string{}
		bundle.DataQuality.Warnings = []string{}
	}
	bundle.DataQuality.OK = len(bundle.DataQuality.Flags) == 0

	threshold, err := s.threshold(opts)
	if err != nil {
		bundle.DataQuality.flag(FlagSettingsUnreadable, err.Error())
		logging.WarnWithContext(logger, "settings unreadable; using default paid threshold", "settings_unreadable",
			logging.Error(err),
			logging.Int("paid_threshold", threshold),
			logging.Hint("fix or delete settings.json"),
		)
	}
	bundle.PaidThreshold = threshold

	if err := s.fill(ctx, bundle, sc, threshold); err != nil {
		bundle.zero()
		bundle.DataQuality.flag(FlagQueryFailed, err.Error())
		logging.WarnWithContext(logger, "metrics query failed; returning zeroed bundle", "metrics_query_failed",
			logging.Error(err),
			logging.String("scope", sc.kind),
			logging.Impact("KPIs for this scope are reported as zero"),
		)
		return
	}

	if bundle.HHHDistribution.TotalVideos == 0 {
		bundle.DataQuality.flag(FlagNoVideos, "no videos in scope")
	}
	if bundle.VideoFrequency.SuspectDates {
		bundle.DataQuality.flag(FlagSuspectDates, "publication dates look imported rather than authoritative; frequency suppressed")
	}
	if bundle.HHHDistribution.HumanClassificationRequired {
		bundle.DataQuality.flag(FlagHumanClassificationRequired, "no categorised videos; human classification required")
	}
	logger.Debug("metrics computed",
		logging.String("scope", sc.kind),
		logging.Int("videos", bundle.HHHDistribution.TotalVideos),
		logging.Int("paid_threshold", threshold),
		logging.Any("flags", bundle.DataQuality.Flags),
	)
}

func (s *Service) fill(ctx context.Context, b *Bundle, sc scope, threshold int) error {
	var err error
	if b.VideoLength, err = s.videoLength(ctx, sc); err != nil {
		return err
	}
	if b.VideoFrequency, err = s.videoFrequency(ctx, sc); err != nil {
		return err
	}
	if b.MostLikedTopics, err = s.mostLikedTopics(ctx, sc); err != nil {
		return err
	}
	if b.OrganicVsPaid, err = s.organicVsPaid(ctx, sc, threshold); err != nil {
		return err
	}
	if b.HHHDistribution, err = s.hhhDistribution(ctx, sc); err != nil {
		return err
	}
	if b.ThumbnailConsistency, err = s.thumbnailConsistency(ctx, sc); err != nil {
		return err
	}
	if b.ToneOfVoice, err = s.toneOfVoice(ctx, sc); err != nil {
		return err
	}
	b.ShortsDistribution = shortsDistribution(b.VideoLength)
	return nil
}

// Persist caches the bundle in the analysis result table of its scope.
func (s *Service) Persist(ctx context.Context, bundle *Bundle) error {
	if bundle == nil {
		return services.Wrap(services.ErrValidation, "metrics", "persist", "bundle is nil", nil)
	}
	payload, err := json.Marshal(bundle)
	if err != nil {
		return services.Wrap(services.ErrInternal, "metrics", "persist", "encode bundle", err)
	}
	switch bundle.Scope {
	case ScopeCompetitor:
		err = s.store.SaveCompetitorAnalysis(ctx, bundle.CompetitorID, bundle.PaidThreshold, string(payload), bundle.ComputedAt)
	case ScopeCountry:
		err = s.store.SaveCountryAnalysis(ctx, bundle.Country, bundle.PaidThreshold, string(payload), bundle.ComputedAt)
	default:
		return services.Wrap(services.ErrValidation, "metrics", "persist", fmt.Sprintf("unknown scope %q", bundle.Scope), nil)
	}
	if err != nil {
		return services.Wrap(services.ErrInternal, "metrics", "persist", "save analysis", err)
	}
	return nil
}

// VerifySplit recomputes the organic/paid split with a direct count on the
// video table and compares it with the service result.
func (s *Service) VerifySplit(ctx context.Context, competitorID int64, opts ...Option) (SplitCheck, error) {
	threshold, err := s.threshold(opts)
	if err != nil {
		return SplitCheck{}, services.Wrap(services.ErrConfiguration, "metrics", "verify split", "read settings", err)
	}
	bundle, err := s.BrandMetrics(ctx, competitorID, WithPaidThreshold(threshold))
	if err != nil {
		return SplitCheck{}, err
	}
	if bundle.DataQuality.Has(FlagQueryFailed) {
		return SplitCheck{}, services.Wrap(services.ErrDataQuality, "metrics", "verify split", strings.Join(bundle.DataQuality.Warnings, "; "), nil)
	}

	var row splitRow
	err = s.db.GetContext(ctx, &row,
		`SELECT COUNT(CASE WHEN view_count <= ? THEN 1 END) AS organic,
                COUNT(CASE WHEN view_count > ? THEN 1 END) AS paid,
                COUNT(*) AS total
         FROM video
         WHERE concurrent_id = ? AND view_count IS NOT NULL`,
		threshold, threshold, competitorID)
	if err != nil {
		return SplitCheck{}, services.Wrap(services.ErrInternal, "metrics", "verify split", "direct count", err)
	}
	direct := row.split(threshold)
	check := SplitCheck{
		CompetitorID:  competitorID,
		PaidThreshold: threshold,
		Service:       bundle.OrganicVsPaid,
		Direct:        direct,
		MaxDelta: round1(max(
			math.Abs(bundle.OrganicVsPaid.OrganicPercentage-direct.OrganicPercentage),
			math.Abs(bundle.OrganicVsPaid.PaidPercentage-direct.PaidPercentage),
		)),
	}
	check.Consistent = check.MaxDelta <= splitTolerance
	if !check.Consistent {
		logging.WarnWithContext(s.logger, "organic/paid split mismatch", "split_mismatch",
			logging.CompetitorID(competitorID),
			logging.Float64("max_delta", check.MaxDelta),
			logging.Impact("brand and country views may disagree"),
		)
	}
	return check, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}
