package sentiment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ytanalyzer/internal/config"
	"ytanalyzer/internal/emotionstore"
	"ytanalyzer/internal/keylock"
	"ytanalyzer/internal/logging"
	"ytanalyzer/internal/services"
	"ytanalyzer/internal/youtube"
)

const (
	pageSize         = 100
	quotaWindow      = 24 * time.Hour
	commentsDisabled = "comments disabled"
)

// CommentSource fetches comment thread pages.
type CommentSource interface {
	CommentThreads(ctx context.Context, videoID, pageToken string, maxResults int) (youtube.Page, error)
}

// Scraper stores YouTube comments in the emotions store and tracks progress
// per video.
type Scraper struct {
	emotions *emotionstore.Store
	source   CommentSource
	logger   *slog.Logger

	dailyQuota int
	workers    int
	target     int
	videoDelay time.Duration
	locks      keylock.Map
}

// NewScraper builds a scraper backed by the YouTube Data API.
func NewScraper(cfg *config.Config, emotions *emotionstore.Store, logger *slog.Logger) *Scraper {
	return NewScraperWithSource(cfg, emotions, youtube.NewClient(youtube.ConfigFrom(cfg)), logger)
}

// NewScraperWithSource allows injecting the comment source (used in tests).
func NewScraperWithSource(cfg *config.Config, emotions *emotionstore.Store, source CommentSource, logger *slog.Logger) *Scraper {
	s := &Scraper{
		emotions:   emotions,
		source:     source,
		logger:     logging.NewComponentLogger(logger, "scraper"),
		dailyQuota: 10000,
		workers:    4,
		target:     20,
	}
	if cfg != nil {
		if cfg.YouTube.DailyQuota > 0 {
			s.dailyQuota = cfg.YouTube.DailyQuota
		}
		if cfg.Scraper.Workers > 0 {
			s.workers = cfg.Scraper.Workers
		}
		if cfg.Scraper.CommentsPerVideo > 0 {
			s.target = cfg.Scraper.CommentsPerVideo
		}
		s.videoDelay = time.Duration(cfg.Scraper.VideoDelayMillis) * time.Millisecond
	}
	return s
}

// VideoResult is the outcome of scraping one video.
type VideoResult struct {
	VideoID     string                      `json:"video_id"`
	Status      emotionstore.ProgressStatus `json:"status"`
	Fetched     int                         `json:"comments_scraped"`
	NewComments int                         `json:"new_comments"`
	QuotaUsed   int                         `json:"quota_used"`
	Err         error                       `json:"-"`
}

// ScrapeVideo fetches up to target comments for one video. Failures are
// recorded on the progress row and returned in the result.
func (s *Scraper) ScrapeVideo(ctx context.Context, videoID string, target int) VideoResult {
	if target <= 0 {
		target = s.target
	}
	ctx = services.WithVideoID(ctx, videoID)
	logger := logging.WithContext(ctx, s.logger)
	unlock := s.locks.Lock(videoID)
	defer unlock()

	result := VideoResult{VideoID: videoID, Status: emotionstore.StatusInProgress}
	if err := s.emotions.StartProgress(ctx, videoID, target); err != nil {
		result.Status, result.Err = emotionstore.StatusError, err
		return result
	}

	pageToken := ""
	for result.Fetched < target {
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, logger, result, err)
		}
		page, err := s.source.CommentThreads(ctx, videoID, pageToken, min(pageSize, target-result.Fetched))
		if err != nil {
			if errors.Is(err, services.ErrCommentsDisabled) {
				result.QuotaUsed++
				if err := s.emotions.RecordQuota(ctx, videoID, 1); err != nil {
					return s.fail(ctx, logger, result, err)
				}
				result.Status = emotionstore.StatusCompleted
				if err := s.emotions.FinishProgress(ctx, videoID, result.Status, result.Fetched, result.QuotaUsed, commentsDisabled); err != nil {
					result.Err = err
				}
				logger.Info("comments disabled", logging.Int("quota_used", result.QuotaUsed))
				return result
			}
			return s.fail(ctx, logger, result, err)
		}
		result.QuotaUsed += page.QuotaCost
		if err := s.emotions.RecordQuota(ctx, videoID, page.QuotaCost); err != nil {
			return s.fail(ctx, logger, result, err)
		}

		comments := page.Comments
		if remaining := target - result.Fetched; len(comments) > remaining {
			comments = comments[:remaining]
		}
		saved, err := s.emotions.SaveComments(ctx, videoID, rawComments(videoID, comments))
		if err != nil {
			return s.fail(ctx, logger, result, err)
		}
		result.Fetched += len(comments)
		result.NewComments += saved
		if err := s.emotions.UpdateProgress(ctx, videoID, result.Fetched, result.QuotaUsed); err != nil {
			return s.fail(ctx, logger, result, err)
		}
		if page.NextPageToken == "" || len(page.Comments) == 0 {
			break
		}
		pageToken = page.NextPageToken
	}

	result.Status = emotionstore.StatusCompleted
	if err := s.emotions.FinishProgress(ctx, videoID, result.Status, result.Fetched, result.QuotaUsed, ""); err != nil {
		result.Err = err
	}
	logger.Debug("video scraped",
		logging.Int("comments", result.Fetched),
		logging.Int("new_comments", result.NewComments),
		logging.Int("quota_used", result.QuotaUsed),
	)
	return result
}

func (s *Scraper) fail(ctx context.Context, logger *slog.Logger, result VideoResult, err error) VideoResult {
	result.Status, result.Err = emotionstore.StatusError, err
	if ferr := s.emotions.FinishProgress(context.WithoutCancel(ctx), result.VideoID, result.Status, result.Fetched, result.QuotaUsed, services.Describe(err)); ferr != nil {
		logger.Debug("progress update failed", logging.Error(ferr))
	}
	logging.WarnWithContext(logger, "video scrape failed", "scrape_failed",
		logging.Error(err),
		logging.String("kind", services.Kind(err)),
		logging.Impact("video skipped for this run"),
	)
	return result
}

func rawComments(videoID string, comments []youtube.Comment) []emotionstore.RawComment {
	out := make([]emotionstore.RawComment, 0, len(comments))
	for _, c := range comments {
		if c.CommentID == "" {
			continue
		}
		out = append(out, emotionstore.RawComment{
			VideoID:     videoID,
			CommentID:   c.CommentID,
			Text:        c.Text,
			AuthorName:  c.AuthorName,
			LikeCount:   c.LikeCount,
			PublishedAt: c.PublishedAt,
			IsReply:     c.IsReply,
			ParentID:    c.ParentID,
		})
	}
	return out
}

// RunOptions tunes a scraping run.
type RunOptions struct {
	// Target is the comment budget per video; zero uses the configured default.
	Target  int
	Workers int
	// Resume skips videos whose progress row is completed.
	Resume bool
	// Stop is polled before each video is enqueued.
	Stop func() bool
	// OnVideo observes every finished video. Calls are serialised.
	OnVideo func(VideoResult)
}

// RunReport summarises a scraping run.
type RunReport struct {
	Requested       int  `json:"requested"`
	Skipped         int  `json:"skipped"`
	Attempted       int  `json:"attempted"`
	Completed       int  `json:"completed"`
	Failed          int  `json:"failed"`
	CommentsScraped int  `json:"comments_scraped"`
	NewComments     int  `json:"new_comments"`
	QuotaUsed       int  `json:"quota_used"`
	QuotaExceeded   bool `json:"quota_exceeded"`
	Stopped         bool `json:"stopped"`
}

// pageCost is the worst-case quota cost of scraping target comments.
func pageCost(target int) int {
	return max(1, (target+pageSize-1)/pageSize)
}

// Run scrapes videoIDs with a bounded worker pool. Per-video failures never
// abort the run; the run stops enqueueing when the daily quota would be
// exceeded, the stop predicate fires, or ctx ends.
func (s *Scraper) Run(ctx context.Context, videoIDs []string, opts RunOptions) (RunReport, error) {
	report := RunReport{Requested: len(videoIDs)}
	target := opts.Target
	if target <= 0 {
		target = s.target
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = s.workers
	}
	logger := logging.WithContext(ctx, s.logger)

	queue := videoIDs
	if opts.Resume {
		done, err := s.emotions.CompletedVideoIDs(ctx)
		if err != nil {
			return report, err
		}
		queue = make([]string, 0, len(videoIDs))
		for _, id := range videoIDs {
			if _, ok := done[id]; ok {
				report.Skipped++
				continue
			}
			queue = append(queue, id)
		}
	}
	if err := s.emotions.MarkPending(ctx, queue, target); err != nil {
		return report, err
	}
	logger.Info("scrape run started",
		logging.Int("videos", len(queue)),
		logging.Int("skipped", report.Skipped),
		logging.Int("target", target),
		logging.Int("workers", workers),
	)

	// Quota already spent in the window is read once; usage during the run
	// is tracked here so in-flight videos are not counted twice.
	baseline, err := s.emotions.QuotaUsedSince(ctx, time.Now().Add(-quotaWindow))
	if err != nil {
		return report, err
	}
	var (
		mu            sync.Mutex
		reserved      int
		quotaExceeded bool
	)
	cost := pageCost(target)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, videoID := range queue {
		if opts.Stop != nil && opts.Stop() {
			report.Stopped = true
			break
		}
		if gctx.Err() != nil {
			break
		}
		mu.Lock()
		if quotaExceeded || baseline+report.QuotaUsed+reserved+cost > s.dailyQuota {
			quotaExceeded = true
			mu.Unlock()
			break
		}
		reserved += cost
		report.Attempted++
		mu.Unlock()

		g.Go(func() error {
			result := s.ScrapeVideo(gctx, videoID, target)
			mu.Lock()
			reserved -= cost
			report.CommentsScraped += result.Fetched
			report.NewComments += result.NewComments
			report.QuotaUsed += result.QuotaUsed
			if result.Err != nil {
				report.Failed++
				if errors.Is(result.Err, services.ErrQuotaExceeded) {
					quotaExceeded = true
				}
			} else {
				report.Completed++
			}
			if opts.OnVideo != nil {
				opts.OnVideo(result)
			}
			mu.Unlock()
			if s.videoDelay > 0 {
				timer := time.NewTimer(s.videoDelay)
				select {
				case <-gctx.Done():
				case <-timer.C:
				}
				timer.Stop()
			}
			return nil
		})
	}
	_ = g.Wait()

	report.QuotaExceeded = quotaExceeded
	attrs := []logging.Attr{
		logging.Int("attempted", report.Attempted),
		logging.Int("completed", report.Completed),
		logging.Int("failed", report.Failed),
		logging.Int("comments", report.CommentsScraped),
		logging.Int("quota_used", report.QuotaUsed),
	}
	if report.QuotaExceeded {
		logging.WarnWithContext(logger, "scrape run stopped at the daily quota", "quota_exceeded",
			append(attrs,
				logging.Int("daily_quota", s.dailyQuota),
				logging.Hint("resume the batch after the quota window resets"),
				logging.Impact("remaining videos were not scraped"),
			)...)
	} else {
		logger.Info("scrape run finished", logging.Args(attrs...)...)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// Stats reports scraping progress across all videos.
func (s *Scraper) Stats(ctx context.Context) (emotionstore.ScrapingStats, error) {
	return s.emotions.ScrapingStats(ctx)
}
