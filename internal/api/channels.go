package api

import (
	"context"
	"errors"
	"strings"

	"ytanalyzer/internal/config"
	"ytanalyzer/internal/services"
	"ytanalyzer/internal/store"
)

// IngestChannel creates or refreshes a competitor from scraped channel data
// and reports its id.
func (c *Core) IngestChannel(ctx context.Context, channelURL string, videos []store.VideoInput, info *store.ChannelInfo) Result[Ingested] {
	return invoke(ctx, c, "ingest_channel", func(ctx context.Context) (Ingested, error) {
		stats, err := c.refresh(ctx, "ingest channel", channelURL, videos, info)
		if err != nil {
			return Ingested{}, err
		}
		return Ingested{CompetitorID: stats.CompetitorID, Stats: stats}, nil
	})
}

// RefreshChannel updates an existing competitor with fresh videos. Unknown
// channels are reported as not found.
func (c *Core) RefreshChannel(ctx context.Context, channelURL string, videos []store.VideoInput, info *store.ChannelInfo) Result[store.RefreshStats] {
	return invoke(ctx, c, "refresh_channel", func(ctx context.Context) (store.RefreshStats, error) {
		channelID := ""
		if info != nil {
			channelID = info.ChannelID
		}
		existing, err := c.store.FindCompetitor(ctx, channelURL, channelID, "")
		if err != nil {
			return store.RefreshStats{}, err
		}
		if existing == nil {
			return store.RefreshStats{}, services.Wrap(services.ErrNotFound, "api", "refresh channel", "no competitor for "+channelURL, nil)
		}
		return c.refresh(ctx, "refresh channel", existing.ChannelURL, videos, info)
	})
}

func (c *Core) refresh(ctx context.Context, op, channelURL string, videos []store.VideoInput, info *store.ChannelInfo) (store.RefreshStats, error) {
	if strings.TrimSpace(channelURL) == "" {
		return store.RefreshStats{}, services.Wrap(services.ErrValidation, "api", op, "channel url is empty", nil)
	}
	for i := range videos {
		if strings.TrimSpace(videos[i].VideoID) == "" {
			return store.RefreshStats{}, services.Wrap(services.ErrValidation, "api", op, "video without video_id", nil)
		}
	}
	stats, err := c.store.RefreshCompetitorData(ctx, channelURL, videos, info)
	if errors.Is(err, store.ErrRefreshBusy) {
		return store.RefreshStats{}, services.Wrap(services.ErrConflict, "api", op, "channel refresh already running", err)
	}
	if err != nil {
		return store.RefreshStats{}, err
	}
	return stats, nil
}

// ListCompetitors returns every stored competitor.
func (c *Core) ListCompetitors(ctx context.Context) Result[[]Competitor] {
	return invoke(ctx, c, "list_competitors", func(ctx context.Context) ([]Competitor, error) {
		items, err := c.store.ListCompetitors(ctx)
		if err != nil {
			return nil, err
		}
		return FromCompetitors(items), nil
	})
}

// DeleteCompetitor removes a competitor with its videos and playlists.
func (c *Core) DeleteCompetitor(ctx context.Context, id int64) Result[Deleted] {
	return invoke(ctx, c, "delete_competitor", func(ctx context.Context) (Deleted, error) {
		ctx = services.WithCompetitorID(ctx, id)
		deleted, err := c.store.DeleteCompetitor(ctx, id)
		if err != nil {
			return Deleted{}, err
		}
		if !deleted {
			return Deleted{}, services.Wrap(services.ErrNotFound, "api", "delete competitor", "unknown competitor", nil)
		}
		return Deleted{CompetitorID: id, Deleted: true}, nil
	})
}

// FindDuplicateCompetitors lists competitors stored more than once under
// the same lowercased name and channel id.
func (c *Core) FindDuplicateCompetitors(ctx context.Context) Result[[]store.DuplicateGroup] {
	return invoke(ctx, c, "find_duplicate_competitors", func(ctx context.Context) ([]store.DuplicateGroup, error) {
		groups, err := c.store.FindDuplicateCompetitors(ctx)
		if err != nil {
			return nil, err
		}
		if groups == nil {
			groups = []store.DuplicateGroup{}
		}
		return groups, nil
	})
}

// UpdateSettings stores a new paid threshold. Metrics read it on their next call.
func (c *Core) UpdateSettings(ctx context.Context, settings Settings) Result[Settings] {
	return invoke(ctx, c, "update_settings", func(ctx context.Context) (Settings, error) {
		if settings.PaidThreshold < 0 {
			return Settings{}, services.Wrap(services.ErrValidation, "api", "update settings", "paid_threshold must be >= 0", nil)
		}
		if err := c.cfg.SettingsStore().Save(config.Settings{PaidThreshold: settings.PaidThreshold}); err != nil {
			return Settings{}, services.Wrap(services.ErrInternal, "api", "update settings", "write settings", err)
		}
		return settings, nil
	})
}
