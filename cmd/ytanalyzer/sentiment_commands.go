package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"ytanalyzer/internal/api"
	"ytanalyzer/internal/batch"
	"ytanalyzer/internal/preflight"
	"ytanalyzer/internal/sentiment"
	"ytanalyzer/internal/snapshot"
)

const (
	scrapePollInterval = 2 * time.Second
	scrapeStopGrace    = 30 * time.Second
)

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	var (
		size      int
		all       bool
		resume    bool
		massive   bool
		fastStore bool
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape comments for the most recent videos",
		Long: `Scrape comments for the most recent stored videos into the emotions database.

The batch runs in the foreground; Ctrl-C stops it after the videos in flight
and keeps everything scraped so far. Re-run with --resume to skip videos that
already completed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if check := preflight.CheckYouTubeKey(cfg); !check.Passed {
				return fmt.Errorf("youtube api: %s", check.Detail)
			}
			var opts []api.Option
			if fastStore {
				opts = append(opts, api.WithEmotionsPath(cfg.Paths.EmotionsFastDB))
			}
			req := api.ScrapeRequest{Size: size, All: all, Resume: resume, Massive: massive}
			return ctx.withCore(func(core *api.Core) error {
				started := core.StartScrapeBatch(cmd.Context(), req)
				if !started.Success {
					return emit(ctx, cmd, started, nil)
				}
				if !ctx.jsonOutput() {
					fmt.Fprintf(cmd.OutOrStdout(), "Batch %s started (%d videos)\n", started.Payload.ID, started.Payload.TotalVideos)
				}
				return emit(ctx, cmd, followBatch(cmd, ctx, core, started.Payload.ID), renderJob)
			}, opts...)
		},
	}
	cmd.Flags().IntVar(&size, "size", 50, "Number of most recent videos to scrape")
	cmd.Flags().BoolVar(&all, "all", false, "Scrape every stored video")
	cmd.Flags().BoolVar(&resume, "resume", false, "Skip videos already scraped")
	cmd.Flags().BoolVar(&massive, "massive", false, "Use the large per-video comment budget")
	cmd.Flags().BoolVar(&fastStore, "fast-store", false, "Write to the fast emotions database")
	return cmd
}

// followBatch polls a batch until it ends. Cancelling the command context
// stops the batch and waits briefly for it to wind down.
func followBatch(cmd *cobra.Command, ctx *commandContext, core *api.Core, id string) api.Result[batch.Job] {
	ticker := time.NewTicker(scrapePollInterval)
	defer ticker.Stop()
	lastProcessed := -1
	for {
		select {
		case <-cmd.Context().Done():
			stopCtx := context.WithoutCancel(cmd.Context())
			if res := core.StopBatch(stopCtx, id); !res.Success {
				return res
			}
			waitCtx, cancel := context.WithTimeout(stopCtx, scrapeStopGrace)
			defer cancel()
			return core.WaitBatch(waitCtx, id)
		case <-ticker.C:
			res := core.BatchStatus(cmd.Context(), id)
			if !res.Success || res.Payload.Status.Terminal() {
				return res
			}
			if !ctx.jsonOutput() && res.Payload.ProcessedVideos != lastProcessed {
				lastProcessed = res.Payload.ProcessedVideos
				fmt.Fprintf(cmd.OutOrStdout(), "  %d/%d videos, %d comments, quota %d\n",
					res.Payload.ProcessedVideos, res.Payload.TotalVideos, res.Payload.CommentsScraped, res.Payload.QuotaUsed)
			}
		}
	}
}

func renderJob(out io.Writer, j batch.Job) {
	pairs := [][2]string{
		{"Status", string(j.Status)},
		{"Videos", fmt.Sprintf("%d/%d", j.ProcessedVideos, j.TotalVideos)},
		{"Failed", itoa(j.FailedVideos)},
		{"Skipped", itoa(j.SkippedVideos)},
		{"Comments", itoa(j.CommentsScraped)},
		{"Quota used", itoa(j.QuotaUsed)},
		{"Elapsed", (time.Duration(j.ElapsedSeconds * float64(time.Second))).Round(time.Second).String()},
	}
	if j.QuotaExceeded {
		pairs = append(pairs, [2]string{"Quota exceeded", "yes"})
	}
	fmt.Fprintln(out, keyValueTable("Batch "+j.ID, pairs))
	if j.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", j.Error)
	}
}

func newAnalyseCommand(ctx *commandContext) *cobra.Command {
	var batchSize, workers int
	cmd := &cobra.Command{
		Use:     "analyse",
		Aliases: []string{"analyze"},
		Short:   "Run sentiment analysis over pending comments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCore(func(core *api.Core) error {
				return emit(ctx, cmd, core.RunEmotionAnalysis(cmd.Context(), batchSize, workers), renderAnalysisReport)
			})
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Comments per batch (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent inference workers (default from config)")
	return cmd
}

func renderAnalysisReport(out io.Writer, r sentiment.AnalysisReport) {
	if r.Processed == 0 {
		fmt.Fprintln(out, "No pending comments")
		return
	}
	pairs := [][2]string{
		{"Model", r.Model},
		{"Processed", itoa(r.Processed)},
		{"Analyzed", itoa(r.Analyzed)},
		{"Skipped", itoa(r.Skipped)},
		{"Failed", itoa(r.Failed)},
	}
	for _, e := range slices.Sorted(maps.Keys(r.Emotions)) {
		pairs = append(pairs, [2]string{string(e), itoa(r.Emotions[e])})
	}
	pairs = append(pairs,
		[2]string{"Videos summarised", itoa(r.VideosSummarised)},
		[2]string{"Comments/s", dec(r.Rate)},
	)
	fmt.Fprintln(out, keyValueTable("Sentiment analysis", pairs))
}

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Show the sentiment dashboard snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if top < 0 {
				return errors.New("--top must not be negative")
			}
			return ctx.withCore(func(core *api.Core) error {
				return emit(ctx, cmd, core.GetSentimentSnapshot(cmd.Context()), func(out io.Writer, s *snapshot.Snapshot) {
					renderSnapshot(out, s, top)
				})
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "Number of ranked videos to list")
	return cmd
}

func renderSnapshot(out io.Writer, s *snapshot.Snapshot, top int) {
	if s == nil {
		return
	}
	st := s.Stats
	fmt.Fprintln(out, keyValueTable("Sentiment snapshot ("+s.ExportInfo.DataSourceUsed+")", [][2]string{
		{"Videos analysed", itoa(st.TotalVideosAnalyzed)},
		{"Comments analysed", itoa(st.TotalCommentsAnalyzed)},
		{"Positive", pct(st.PositivePercentage)},
		{"Negative", pct(st.NegativePercentage)},
		{"Neutral", pct(st.NeutralPercentage)},
		{"Avg confidence", dec(st.AvgConfidence)},
		{"Engagement correlation", fmt.Sprintf("%.2f", st.EngagementCorrelation)},
	}))
	videos := s.Videos
	if len(videos) > top {
		videos = videos[:top]
	}
	if len(videos) == 0 {
		return
	}
	rows := make([][]string, 0, len(videos))
	for _, v := range videos {
		rows = append(rows, []string{itoa(v.Rank), v.Title, v.CompetitorName, itoa(v.TotalComments), pct(v.PositivePercentage), v.DominantSentiment})
	}
	fmt.Fprintln(out, renderTable("", []string{"#", "Title", "Competitor", "Comments", "Positive", "Dominant"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
}
