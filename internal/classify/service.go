package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"ytanalyzer/internal/config"
	"ytanalyzer/internal/logging"
	"ytanalyzer/internal/services"
	"ytanalyzer/internal/store"
	"ytanalyzer/internal/taxonomy"
)

// Service applies the engine to stored videos and playlists and records
// human labels and feedback.
type Service struct {
	cfg      *config.Config
	store    *store.Store
	provider *Provider
	engine   *Engine
	logger   *slog.Logger

	restoreOnce sync.Once
}

// NewService builds a service with the configured model provider.
func NewService(cfg *config.Config, st *store.Store, logger *slog.Logger) *Service {
	return NewServiceWithProvider(cfg, st, logger, NewProvider(cfg, logger))
}

// NewServiceWithProvider allows injecting the provider (used in tests).
func NewServiceWithProvider(cfg *config.Config, st *store.Store, logger *slog.Logger, provider *Provider) *Service {
	return &Service{
		cfg:      cfg,
		store:    st,
		provider: provider,
		engine:   NewEngine(provider, logger),
		logger:   logging.NewComponentLogger(logger, "classifier"),
	}
}

// Provider exposes the model provider.
func (s *Service) Provider() *Provider { return s.provider }

// restore loads the last trained prototypes once per process.
func (s *Service) restore(ctx context.Context) {
	s.restoreOnce.Do(func() {
		model := s.provider.Model()
		state, err := s.store.ClassifierState(ctx, model.Variant())
		if err == nil && state == nil {
			state, err = s.store.ClassifierState(ctx, "")
		}
		if err != nil {
			s.logger.Warn("classifier state unavailable", logging.Error(err))
			return
		}
		if state == nil {
			return
		}
		var prototypes PrototypeState
		if err := json.Unmarshal([]byte(state.PrototypesJSON), &prototypes); err != nil {
			s.logger.Warn("classifier state unreadable", logging.Error(err))
			return
		}
		if err := model.Restore(ctx, prototypes); err != nil {
			s.logger.Warn("classifier state restore failed", logging.Error(err))
			return
		}
		s.logger.Info("classifier prototypes restored",
			logging.String("variant", model.Variant()),
			logging.Int("examples", state.ExamplesUsed),
		)
	})
}

// ClassifyItem labels an ad-hoc title and description without storing it.
func (s *Service) ClassifyItem(ctx context.Context, title, description string) (Classification, error) {
	if strings.TrimSpace(title) == "" {
		return Classification{}, services.Wrap(services.ErrValidation, "classifier", "classify item", "title is empty", nil)
	}
	s.restore(ctx)
	return s.engine.ClassifyText(ctx, title, description, taxonomy.None), nil
}

// Item is one entry of a batch classification request. Items naming a
// stored video are classified and written back under the label guards.
type Item struct {
	VideoID     string `json:"video_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// LabelledItem is an item with its resolved label.
type LabelledItem struct {
	Item
	Classification
	ClassificationSource taxonomy.Source `json:"classification_source"`
	Stored               bool            `json:"stored"`
	Updated              bool            `json:"updated"`
}

// BatchClassify labels items in order. Stored human labels are reported
// unchanged.
func (s *Service) BatchClassify(ctx context.Context, items []Item) ([]LabelledItem, error) {
	s.restore(ctx)
	labels, err := s.playlistLabels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]LabelledItem, 0, len(items))
	for _, item := range items {
		if item.VideoID == "" {
			if strings.TrimSpace(item.Title) == "" {
				return nil, services.Wrap(services.ErrValidation, "classifier", "batch classify", "item without title or video_id", nil)
			}
			c := s.engine.ClassifyText(ctx, item.Title, item.Description, taxonomy.None)
			out = append(out, LabelledItem{Item: item, Classification: c, ClassificationSource: c.Source()})
			continue
		}
		video, err := s.store.GetVideo(ctx, item.VideoID)
		if err != nil {
			return nil, err
		}
		if video == nil {
			return nil, services.Wrap(services.ErrNotFound, "classifier", "batch classify", "video "+item.VideoID, nil)
		}
		labelled, err := s.classifyVideo(ctx, video, labels)
		if err != nil {
			return nil, err
		}
		out = append(out, labelled)
	}
	return out, nil
}

// BatchReport summarises a store-wide classification run.
type BatchReport struct {
	Total         int `json:"total"`
	Human         int `json:"human"`
	Propagated    int `json:"propagated"`
	Semantic      int `json:"semantic"`
	Keyword       int `json:"keyword"`
	Uncategorized int `json:"uncategorized"`
	Updated       int `json:"updated"`
}

func (r *BatchReport) count(item LabelledItem) {
	r.Total++
	if item.Updated {
		r.Updated++
	}
	switch item.ClassificationSource {
	case taxonomy.SourceHuman:
		r.Human++
	case taxonomy.SourcePropagated:
		r.Propagated++
	case taxonomy.SourceSemantic:
		r.Semantic++
	case taxonomy.SourceKeyword:
		r.Keyword++
	default:
		r.Uncategorized++
	}
}

// ClassifyVideos runs the engine over the videos of one competitor, or of
// every competitor when competitorID is 0.
func (s *Service) ClassifyVideos(ctx context.Context, competitorID int64) (BatchReport, error) {
	var report BatchReport
	s.restore(ctx)
	videos, err := s.store.ListVideos(ctx, competitorID)
	if err != nil {
		return report, err
	}
	labels, err := s.playlistLabels(ctx)
	if err != nil {
		return report, err
	}
	for _, video := range videos {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		item, err := s.classifyVideo(ctx, video, labels)
		if err != nil {
			return report, err
		}
		report.count(item)
	}
	s.logger.Info("video classification finished",
		logging.CompetitorID(competitorID),
		logging.Int("total", report.Total),
		logging.Int("updated", report.Updated),
		logging.Int("human", report.Human),
		logging.Int("propagated", report.Propagated),
	)
	return report, nil
}

// playlistLabels holds the playlist categories seen by a classification run.
type playlistLabels struct {
	// human maps videos to human-labelled playlist categories, which propagate.
	human map[string]taxonomy.Category
	// inherited maps videos to the best labelled playlist category, inherited by
	// short titles.
	inherited map[string]taxonomy.Category
}

func (s *Service) playlistLabels(ctx context.Context) (playlistLabels, error) {
	human, err := s.store.HumanPlaylistCategories(ctx)
	if err != nil {
		return playlistLabels{}, err
	}
	all, err := s.store.PlaylistCategories(ctx)
	if err != nil {
		return playlistLabels{}, err
	}
	return playlistLabels{human: human, inherited: all}, nil
}

func (s *Service) classifyVideo(ctx context.Context, video *store.Video, labels playlistLabels) (LabelledItem, error) {
	item := LabelledItem{
		Item:   Item{VideoID: video.VideoID, Title: video.Title, Description: video.Description},
		Stored: true,
	}
	if video.Label().Sticky() {
		item.Classification = Classification{Category: video.Category, Confidence: 100, Method: MethodHuman}
		item.ClassificationSource = taxonomy.SourceHuman
		return item, nil
	}
	if category, ok := labels.human[video.VideoID]; ok && category.Valid() {
		item.Classification = Classification{Category: category, Confidence: store.PropagatedConfidence, Method: MethodPropagated}
	} else {
		item.Classification = s.engine.ClassifyText(ctx, video.Title, video.Description, labels.inherited[video.VideoID])
	}
	item.ClassificationSource = item.Source()
	if !item.Category.Valid() {
		return item, nil
	}
	updated, err := s.store.ApplyMachineLabel(ctx, video.VideoID, item.Category, item.ClassificationSource, item.Confidence)
	if err != nil {
		return item, err
	}
	item.Updated = updated
	return item, nil
}

// ClassifyPlaylists labels playlists from name and description. Human
// playlists are left alone.
func (s *Service) ClassifyPlaylists(ctx context.Context, competitorID int64) (BatchReport, error) {
	var report BatchReport
	s.restore(ctx)
	playlists, err := s.store.ListPlaylists(ctx, competitorID)
	if err != nil {
		return report, err
	}
	for _, pl := range playlists {
		item := LabelledItem{Item: Item{Title: pl.Name, Description: pl.Description}, Stored: true}
		if pl.Label().Sticky() {
			item.Classification = Classification{Category: pl.Category, Confidence: 100, Method: MethodHuman}
			item.ClassificationSource = taxonomy.SourceHuman
			report.count(item)
			continue
		}
		item.Classification = s.engine.ClassifyText(ctx, pl.Name, pl.Description, taxonomy.None)
		item.ClassificationSource = item.Source()
		if item.Category.Valid() {
			updated, err := s.store.ApplyMachinePlaylistLabel(ctx, pl.PlaylistID, item.Category, item.ClassificationSource, item.Confidence)
			if err != nil {
				return report, err
			}
			item.Updated = updated
		}
		report.count(item)
	}
	return report, nil
}

// SetVideoCategory records a human label on a video.
func (s *Service) SetVideoCategory(ctx context.Context, videoID, category, notes string) (*store.Video, error) {
	cat, err := taxonomy.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	video, err := s.store.SetHumanVideoCategory(ctx, videoID, cat, notes)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, services.Wrap(services.ErrNotFound, "classifier", "set video category", "video "+videoID, nil)
	}
	s.logger.Info("human video label recorded", logging.VideoID(videoID), logging.String("category", string(cat)))
	return video, nil
}

// PlaylistLabel reports a human playlist label and its propagation.
type PlaylistLabel struct {
	PlaylistID string            `json:"playlist_id"`
	Category   taxonomy.Category `json:"category"`
	Propagated int               `json:"propagated_videos"`
}

// SetPlaylistCategory records a human label on a playlist and propagates it
// to the non-human videos it contains.
func (s *Service) SetPlaylistCategory(ctx context.Context, playlistID, category string) (PlaylistLabel, error) {
	cat, err := taxonomy.ParseCategory(category)
	if err != nil {
		return PlaylistLabel{}, err
	}
	n, err := s.store.SetHumanPlaylistCategory(ctx, playlistID, cat)
	if err != nil {
		return PlaylistLabel{}, err
	}
	if n < 0 {
		return PlaylistLabel{}, services.Wrap(services.ErrNotFound, "classifier", "set playlist category", "playlist "+playlistID, nil)
	}
	s.logger.Info("human playlist label recorded",
		logging.String("playlist_id", playlistID),
		logging.String("category", string(cat)),
		logging.Int("propagated", n),
	)
	return PlaylistLabel{PlaylistID: playlistID, Category: cat, Propagated: n}, nil
}

// SubmitFeedback stores a correction. The video is resolved by exact title
// when one matches.
func (s *Service) SubmitFeedback(ctx context.Context, title, description, category, notes string) (*store.Feedback, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "classifier", "submit feedback", "title is empty", nil)
	}
	cat, err := taxonomy.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	fb := store.Feedback{
		Title:             title,
		Description:       description,
		CorrectedCategory: cat,
		Type:              store.FeedbackCorrection,
		Notes:             notes,
	}
	video, err := s.store.FindVideoByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	if video != nil {
		fb.VideoRowID = video.ID
		fb.OriginalCategory = video.Category
	}
	if err := s.store.AddFeedback(ctx, fb); err != nil {
		return nil, fmt.Errorf("submit feedback: %w", err)
	}
	return &fb, nil
}
