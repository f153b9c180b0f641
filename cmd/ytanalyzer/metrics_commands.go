package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ytanalyzer/internal/api"
	"ytanalyzer/internal/metrics"
	"ytanalyzer/internal/store"
)

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute brand and country KPIs",
	}

	metricsCmd.AddCommand(&cobra.Command{
		Use:   "brand <competitor-id>",
		Short: "Compute the KPI bundle of one competitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withCore(func(core *api.Core) error {
				return emit(ctx, cmd, core.ComputeBrandMetrics(cmd.Context(), id), renderBundle)
			})
		},
	})

	metricsCmd.AddCommand(&cobra.Command{
		Use:   "country <country>",
		Short: "Compute the KPI bundle of every competitor in a country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCore(func(core *api.Core) error {
				return emit(ctx, cmd, core.ComputeCountryMetrics(cmd.Context(), args[0]), renderBundle)
			})
		},
	})

	metricsCmd.AddCommand(&cobra.Command{
		Use:   "countries",
		Short: "List countries with stored competitors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCore(func(core *api.Core) error {
				return emit(ctx, cmd, core.Countries(cmd.Context()), renderCountries)
			})
		},
	})

	metricsCmd.AddCommand(&cobra.Command{
		Use:   "verify <competitor-id>",
		Short: "Cross-check the organic/paid split against a direct count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withCore(func(core *api.Core) error {
				return emit(ctx, cmd, core.VerifyOrganicPaidSplit(cmd.Context(), id), renderSplitCheck)
			})
		},
	})

	return metricsCmd
}

func bundleTitle(b *metrics.Bundle) string {
	if b.Scope == metrics.ScopeCountry {
		return fmt.Sprintf("Country %s (%d competitors)", b.Country, len(b.Competitors))
	}
	return fmt.Sprintf("Competitor %d", b.CompetitorID)
}

func renderBundle(out io.Writer, b *metrics.Bundle) {
	if b == nil {
		return
	}
	hhh := b.HHHDistribution
	op := b.OrganicVsPaid
	fmt.Fprintln(out, keyValueTable(bundleTitle(b), [][2]string{
		{"Videos", itoa(b.VideoLength.TotalVideos)},
		{"Avg duration (min)", dec(b.VideoLength.AvgDurationMinutes)},
		{"Videos per week", dec(b.VideoFrequency.VideosPerWeek)},
		{"Consistency", dec(b.VideoFrequency.ConsistencyScore)},
		{"Shorts", pct(b.ShortsDistribution.ShortsPercentage)},
		{"Organic", fmt.Sprintf("%d (%s)", op.OrganicCount, pct(op.OrganicPercentage))},
		{"Paid (>= " + itoa(b.PaidThreshold) + " views)", fmt.Sprintf("%d (%s)", op.PaidCount, pct(op.PaidPercentage))},
		{"Hero", fmt.Sprintf("%d (%s)", hhh.HeroCount, pct(hhh.HeroPercentage))},
		{"Hub", fmt.Sprintf("%d (%s)", hhh.HubCount, pct(hhh.HubPercentage))},
		{"Help", fmt.Sprintf("%d (%s)", hhh.HelpCount, pct(hhh.HelpPercentage))},
		{"Uncategorized", itoa(hhh.UncategorizedCount)},
		{"Thumbnails", pct(b.ThumbnailConsistency.ConsistencyScore)},
		{"Dominant tone", b.ToneOfVoice.DominantTone},
		{"Top keywords", strings.Join(b.ToneOfVoice.TopKeywords, ", ")},
	}))
	if len(b.MostLikedTopics) > 0 {
		rows := make([][]string, 0, len(b.MostLikedTopics))
		for _, t := range b.MostLikedTopics {
			rows = append(rows, []string{t.Topic, itoa(t.Views), itoa(t.Likes), itoa(t.Comments), itoa(t.EngagementScore)})
		}
		fmt.Fprintln(out, renderTable("Most engaging", []string{"Title", "Views", "Likes", "Comments", "Score"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight}))
	}
	for _, w := range b.DataQuality.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", w)
	}
}

func renderCountries(out io.Writer, countries []store.CountryCount) {
	if len(countries) == 0 {
		fmt.Fprintln(out, "No countries recorded")
		return
	}
	rows := make([][]string, 0, len(countries))
	for _, c := range countries {
		rows = append(rows, []string{c.Country, itoa(c.Competitors)})
	}
	fmt.Fprintln(out, renderTable("", []string{"Country", "Competitors"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func renderSplitCheck(out io.Writer, s metrics.SplitCheck) {
	verdict := "consistent"
	if !s.Consistent {
		verdict = "MISMATCH"
	}
	fmt.Fprintln(out, renderTable(fmt.Sprintf("Organic/paid split, competitor %d (%s)", s.CompetitorID, verdict),
		[]string{"Source", "Organic", "Paid", "Organic %", "Paid %"},
		[][]string{
			{"service", itoa(s.Service.OrganicCount), itoa(s.Service.PaidCount), pct(s.Service.OrganicPercentage), pct(s.Service.PaidPercentage)},
			{"direct", itoa(s.Direct.OrganicCount), itoa(s.Direct.PaidCount), pct(s.Direct.OrganicPercentage), pct(s.Direct.PaidPercentage)},
		},
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight}))
}
