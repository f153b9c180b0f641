package api

import (
	"context"

	"ytanalyzer/internal/classify"
	"ytanalyzer/internal/services"
	"ytanalyzer/internal/taxonomy"
)

// ClassifyItem labels an ad-hoc title and description.
func (c *Core) ClassifyItem(ctx context.Context, title, description string) Result[classify.Classification] {
	return invoke(ctx, c, "classify_item", func(ctx context.Context) (classify.Classification, error) {
		return c.classifier.ClassifyItem(ctx, title, description)
	})
}

// BatchClassify labels items in order. Items naming a stored video are
// written back; human labels are returned unchanged.
func (c *Core) BatchClassify(ctx context.Context, items []classify.Item) Result[[]classify.LabelledItem] {
	return invoke(ctx, c, "batch_classify", func(ctx context.Context) ([]classify.LabelledItem, error) {
		return c.classifier.BatchClassify(ctx, items)
	})
}

// ClassifyAllVideos runs the classifier over every stored video and playlist.
func (c *Core) ClassifyAllVideos(ctx context.Context) Result[classify.BatchReport] {
	return invoke(ctx, c, "classify_all_videos", func(ctx context.Context) (classify.BatchReport, error) {
		if _, err := c.classifier.ClassifyPlaylists(ctx, 0); err != nil {
			return classify.BatchReport{}, err
		}
		return c.classifier.ClassifyVideos(ctx, 0)
	})
}

// TrainClassifier rebuilds the semantic prototypes from human labels. In
// interactive mode the caller's Confirm callback sees the example counts
// first and may cancel.
func (c *Core) TrainClassifier(ctx context.Context, req TrainRequest) Result[*classify.TrainingReport] {
	return invoke(ctx, c, "train_classifier", func(ctx context.Context) (*classify.TrainingReport, error) {
		if !req.NonInteractive && req.Confirm != nil {
			preview, err := c.trainingPreview(ctx)
			if err != nil {
				return nil, err
			}
			if !req.Confirm(preview) {
				return nil, services.Wrap(services.ErrValidation, "api", "train classifier", "training cancelled", nil)
			}
		}
		return c.classifier.Train(ctx, classify.TrainOptions{TestSize: req.TestSize, Seed: req.Seed})
	})
}

func (c *Core) trainingPreview(ctx context.Context) (TrainingPreview, error) {
	examples, err := c.store.HumanExamples(ctx)
	if err != nil {
		return TrainingPreview{}, err
	}
	preview := TrainingPreview{
		Examples:       len(examples),
		CategoryCounts: make(map[taxonomy.Category]int),
		Origins:        make(map[string]int),
	}
	for _, ex := range examples {
		preview.CategoryCounts[ex.Category]++
		preview.Origins[ex.Origin]++
	}
	return preview, nil
}

// TrainingMetadata reports the last training run and the label sources
// currently stored.
func (c *Core) TrainingMetadata(ctx context.Context) Result[ClassificationStatus] {
	return invoke(ctx, c, "training_metadata", func(ctx context.Context) (ClassificationStatus, error) {
		meta, err := c.classifier.TrainingMetadata(ctx)
		if err != nil {
			return ClassificationStatus{}, err
		}
		counts, err := c.store.ClassificationCounts(ctx)
		if err != nil {
			return ClassificationStatus{}, err
		}
		return ClassificationStatus{Training: meta, Sources: counts}, nil
	})
}

// SubmitFeedback stores a human correction for the next training run.
func (c *Core) SubmitFeedback(ctx context.Context, title, description, category, notes string) Result[Feedback] {
	return invoke(ctx, c, "submit_feedback", func(ctx context.Context) (Feedback, error) {
		fb, err := c.classifier.SubmitFeedback(ctx, title, description, category, notes)
		if err != nil {
			return Feedback{}, err
		}
		return FromFeedback(fb), nil
	})
}

// SetVideoCategory records a human label on a stored video.
func (c *Core) SetVideoCategory(ctx context.Context, videoID, category, notes string) Result[Video] {
	return invoke(ctx, c, "set_video_category", func(ctx context.Context) (Video, error) {
		ctx = services.WithVideoID(ctx, videoID)
		video, err := c.classifier.SetVideoCategory(ctx, videoID, category, notes)
		if err != nil {
			return Video{}, err
		}
		return FromVideo(video), nil
	})
}

// SetPlaylistCategory records a human label on a playlist and propagates it.
func (c *Core) SetPlaylistCategory(ctx context.Context, playlistID, category string) Result[classify.PlaylistLabel] {
	return invoke(ctx, c, "set_playlist_category", func(ctx context.Context) (classify.PlaylistLabel, error) {
		return c.classifier.SetPlaylistCategory(ctx, playlistID, category)
	})
}

// GetVideo returns one stored video with its label.
func (c *Core) GetVideo(ctx context.Context, videoID string) Result[Video] {
	return invoke(ctx, c, "get_video", func(ctx context.Context) (Video, error) {
		video, err := c.store.GetVideo(ctx, videoID)
		if err != nil {
			return Video{}, err
		}
		if video == nil {
			return Video{}, services.Wrap(services.ErrNotFound, "api", "get video", "video "+videoID, nil)
		}
		return FromVideo(video), nil
	})
}
