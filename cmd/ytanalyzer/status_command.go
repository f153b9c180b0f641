package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ytanalyzer/internal/api"
	"ytanalyzer/internal/classify"
	"ytanalyzer/internal/emotionstore"
	"ytanalyzer/internal/preflight"
	"ytanalyzer/internal/taxonomy"
)

// statusReport is the --json payload of the status command.
type statusReport struct {
	Preflight   []preflight.Result       `json:"preflight"`
	Competitors int                      `json:"competitors"`
	Classifier  api.ClassificationStatus `json:"classifier"`
	Emotions    api.EmotionStats         `json:"emotions"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show readiness checks, classifier state, and scraping totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := statusReport{Preflight: preflight.RunAll(cmd.Context(), cfg)}
			err = ctx.withCore(func(core *api.Core) error {
				competitors := core.ListCompetitors(cmd.Context())
				classifier := core.TrainingMetadata(cmd.Context())
				emotions := core.EmotionStats(cmd.Context())
				for _, res := range []string{competitors.Error, classifier.Error, emotions.Error} {
					if res != "" {
						return fmt.Errorf("status: %s", res)
					}
				}
				report.Competitors = len(competitors.Payload)
				report.Classifier = classifier.Payload
				report.Emotions = emotions.Payload
				return nil
			})
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, api.Result[statusReport]{Success: true, Payload: report})
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string
			lines = append(lines, renderSectionHeader("Readiness", colorize)...)
			for _, r := range report.Preflight {
				lines = append(lines, preflightLine(r, colorize))
			}
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Data", colorize)...)
			lines = append(lines,
				renderStatusLine("Competitors", statusInfo, itoa(report.Competitors), colorize),
				classifierLine(report.Classifier.Training, colorize),
				renderStatusLine("Human labels", statusInfo, itoa(report.Classifier.Sources[taxonomy.SourceHuman]), colorize),
				scrapingLine(report.Emotions.Scraping, colorize),
				renderStatusLine("Comments", statusInfo, fmt.Sprintf("%d raw, %d analysed, %d pending",
					report.Emotions.Analysis.RawComments,
					report.Emotions.Analysis.ProcessedComments,
					report.Emotions.Analysis.PendingComments), colorize),
			)
			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func classifierLine(meta classify.TrainingMetadata, colorize bool) string {
	if !meta.Trained {
		return renderStatusLine("Classifier", statusWarn, "Never trained (run `ytanalyzer train`)", colorize)
	}
	detail := fmt.Sprintf("%s, %d examples", meta.Variant, meta.ExamplesUsed)
	if meta.TrainedAt != nil {
		detail += ", trained " + meta.TrainedAt.Format("2006-01-02 15:04")
	}
	if meta.ValidationAccuracy != nil {
		detail += fmt.Sprintf(", holdout accuracy %.1f%%", *meta.ValidationAccuracy*100)
	}
	return renderStatusLine("Classifier", statusOK, detail, colorize)
}

func scrapingLine(stats emotionstore.ScrapingStats, colorize bool) string {
	if stats.Videos == 0 {
		return renderStatusLine("Scraping", statusInfo, "No videos scraped yet", colorize)
	}
	detail := fmt.Sprintf("%d videos (%d completed, %d pending, %d failed), %d comments, %d quota units",
		stats.Videos,
		stats.ByStatus[emotionstore.StatusCompleted],
		stats.ByStatus[emotionstore.StatusPending],
		stats.ByStatus[emotionstore.StatusFailed],
		stats.CommentsScraped,
		stats.QuotaUsed,
	)
	kind := statusOK
	if stats.ByStatus[emotionstore.StatusFailed] > 0 {
		kind = statusWarn
	}
	return renderStatusLine("Scraping", kind, detail, colorize)
}
