package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ytanalyzer/internal/api"
	"ytanalyzer/internal/classify"
	"ytanalyzer/internal/taxonomy"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	classifyCmd := &cobra.Command{
		Use:   "classify",
		Short: "Label videos and playlists as hero, hub or help",
	}
	classifyCmd.AddCommand(newClassifyItemCommand(ctx))
	classifyCmd.AddCommand(newClassifyAllCommand(ctx))
	classifyCmd.AddCommand(newClassifyBatchCommand(ctx))
	classifyCmd.AddCommand(newClassifyVideoCommand(ctx))
	classifyCmd.AddCommand(newClassifyPlaylistCommand(ctx))
	return classifyCmd
}

func newClassifyItemCommand(ctx *commandContext) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Classify an ad-hoc title and description",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCore(func(core *api.Core) error {
				res := core.ClassifyItem(cmd.Context(), title, description)
				return emit(ctx, cmd, res, func(out io.Writer, c classify.Classification) {
					fmt.Fprintf(out, "%s (confidence %.2f, %s)\n", categoryLabel(c.Category), c.Confidence, c.Method)
				})
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Video title")
	cmd.Flags().StringVar(&description, "description", "", "Video description")
	return cmd
}

func newClassifyAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Classify every stored playlist and video",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCore(func(core *api.Core) error {
				return emit(ctx, cmd, core.ClassifyAllVideos(cmd.Context()), renderBatchReport)
			})
		},
	}
}

func newClassifyBatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <items.json|->",
		Short: "Classify a JSON array of {video_id, title, description} items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []classify.Item
			if err := readJSONFile(cmd, args[0], &items); err != nil {
				return fmt.Errorf("load items: %w", err)
			}
			return ctx.withCore(func(core *api.Core) error {
				return emit(ctx, cmd, core.BatchClassify(cmd.Context(), items), renderLabelledItems)
			})
		},
	}
}

func newClassifyVideoCommand(ctx *commandContext) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "video <video-id> <category>",
		Short: "Record a human label on a stored video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCore(func(core *api.Core) error {
				res := core.SetVideoCategory(cmd.Context(), args[0], args[1], notes)
				return emit(ctx, cmd, res, func(out io.Writer, v api.Video) {
					fmt.Fprintf(out, "%s labelled %s\n", v.VideoID, categoryLabel(v.Category))
				})
			})
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form note stored with the feedback")
	return cmd
}

func newClassifyPlaylistCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "playlist <playlist-id> <category>",
		Short: "Record a human label on a playlist and propagate it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCore(func(core *api.Core) error {
				res := core.SetPlaylistCategory(cmd.Context(), args[0], args[1])
				return emit(ctx, cmd, res, func(out io.Writer, p classify.PlaylistLabel) {
					fmt.Fprintf(out, "%s labelled %s, %d videos updated\n", p.PlaylistID, categoryLabel(p.Category), p.Propagated)
				})
			})
		},
	}
}

func newTrainCommand(ctx *commandContext) *cobra.Command {
	var (
		assumeYes bool
		testSize  int
		seed      uint64
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Rebuild the semantic classifier from human labels",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.TrainRequest{
				NonInteractive: assumeYes || ctx.jsonOutput(),
				TestSize:       testSize,
				Seed:           seed,
				Confirm: func(p api.TrainingPreview) bool {
					return confirmTraining(cmd, p)
				},
			}
			return ctx.withCore(func(core *api.Core) error {
				return emit(ctx, cmd, core.TrainClassifier(cmd.Context(), req), renderTrainingReport)
			})
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Train without asking for confirmation")
	cmd.Flags().IntVar(&testSize, "test-size", 0, "Holdout examples per category (default from config)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Holdout shuffle seed (0 picks one)")
	return cmd
}

func confirmTraining(cmd *cobra.Command, p api.TrainingPreview) bool {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d human examples:", p.Examples)
	for _, cat := range taxonomy.Categories {
		fmt.Fprintf(out, " %s %d", categoryLabel(cat), p.CategoryCounts[cat])
	}
	fmt.Fprint(out, "\nTrain now? [y/N] ")
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func newFeedbackCommand(ctx *commandContext) *cobra.Command {
	var title, description, category, notes string
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Store a human correction for the next training run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCore(func(core *api.Core) error {
				res := core.SubmitFeedback(cmd.Context(), title, description, category, notes)
				return emit(ctx, cmd, res, func(out io.Writer, f api.Feedback) {
					matched := "no stored video matched"
					if f.MatchedVideo {
						matched = "stored video updated"
					}
					fmt.Fprintf(out, "Feedback recorded as %s (%s)\n", categoryLabel(f.CorrectedCategory), matched)
				})
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Video title")
	cmd.Flags().StringVar(&description, "description", "", "Video description")
	cmd.Flags().StringVar(&category, "category", "", "Corrected category (hero, hub or help)")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form note")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func renderBatchReport(out io.Writer, r classify.BatchReport) {
	fmt.Fprintln(out, keyValueTable("Classification", [][2]string{
		{"Videos", itoa(r.Total)},
		{"Human", itoa(r.Human)},
		{"Playlist", itoa(r.Propagated)},
		{"Semantic", itoa(r.Semantic)},
		{"Keyword", itoa(r.Keyword)},
		{"Uncategorized", itoa(r.Uncategorized)},
		{"Updated", itoa(r.Updated)},
	}))
}

func renderLabelledItems(out io.Writer, items []classify.LabelledItem) {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.VideoID, it.Title, categoryLabel(it.Category), fmt.Sprintf("%.2f", it.Confidence), string(it.ClassificationSource)})
	}
	fmt.Fprintln(out, renderTable("", []string{"Video", "Title", "Category", "Confidence", "Source"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
}

func renderTrainingReport(out io.Writer, r *classify.TrainingReport) {
	if r == nil {
		return
	}
	pairs := [][2]string{
		{"Variant", r.Variant},
		{"Examples", itoa(r.ExamplesUsed)},
	}
	for _, cat := range taxonomy.Categories {
		pairs = append(pairs, [2]string{categoryLabel(cat), itoa(r.CategoryCounts[cat])})
	}
	if r.Validation != nil {
		pairs = append(pairs, [2]string{"Holdout accuracy", pct(r.Validation.Accuracy * 100)})
	}
	pairs = append(pairs, [2]string{"Balanced", yesNo(r.Quality.Balanced)})
	fmt.Fprintln(out, keyValueTable("Training", pairs))
	if r.Degraded != "" {
		fmt.Fprintf(out, "Degraded: %s\n", r.Degraded)
	}
	for _, rec := range r.Quality.Recommendations {
		fmt.Fprintf(out, "- %s\n", rec)
	}
}

func categoryLabel(c taxonomy.Category) string {
	if c == "" {
		return "uncategorized"
	}
	return c.String()
}
