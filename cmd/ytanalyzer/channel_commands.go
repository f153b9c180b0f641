package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ytanalyzer/internal/api"
	"ytanalyzer/internal/store"
)

// channelFile is the document accepted by ingest and refresh: the scraped
// channel page and its videos.
type channelFile struct {
	ChannelURL  string             `json:"channel_url"`
	ChannelInfo *store.ChannelInfo `json:"channel_info,omitempty"`
	Videos      []store.VideoInput `json:"videos"`
}

func loadChannelFile(cmd *cobra.Command, path, urlOverride string) (channelFile, error) {
	var doc channelFile
	if err := readJSONFile(cmd, path, &doc); err != nil {
		return channelFile{}, fmt.Errorf("load channel file: %w", err)
	}
	if url := strings.TrimSpace(urlOverride); url != "" {
		doc.ChannelURL = url
	}
	if strings.TrimSpace(doc.ChannelURL) == "" {
		return channelFile{}, errors.New("channel_url missing (set it in the file or pass --url)")
	}
	return doc, nil
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var urlFlag string
	cmd := &cobra.Command{
		Use:   "ingest <channel.json|->",
		Short: "Create or refresh a competitor from scraped channel data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadChannelFile(cmd, args[0], urlFlag)
			if err != nil {
				return err
			}
			return ctx.withCore(func(core *api.Core) error {
				res := core.IngestChannel(cmd.Context(), doc.ChannelURL, doc.Videos, doc.ChannelInfo)
				return emit(ctx, cmd, res, func(out io.Writer, p api.Ingested) {
					fmt.Fprintf(out, "Competitor %d (%s): %d new, %d updated, %d total videos, %d playlists\n",
						p.CompetitorID, p.Stats.Action, p.Stats.NewVideos, p.Stats.UpdatedVideos, p.Stats.TotalVideos, p.Stats.Playlists)
				})
			})
		},
	}
	cmd.Flags().StringVar(&urlFlag, "url", "", "Channel URL (overrides channel_url in the file)")
	return cmd
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var urlFlag string
	cmd := &cobra.Command{
		Use:   "refresh <channel.json|->",
		Short: "Refresh an existing competitor with fresh videos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadChannelFile(cmd, args[0], urlFlag)
			if err != nil {
				return err
			}
			return ctx.withCore(func(core *api.Core) error {
				res := core.RefreshChannel(cmd.Context(), doc.ChannelURL, doc.Videos, doc.ChannelInfo)
				return emit(ctx, cmd, res, func(out io.Writer, p store.RefreshStats) {
					fmt.Fprintf(out, "Competitor %d refreshed: %d new, %d updated, %d total videos\n",
						p.CompetitorID, p.NewVideos, p.UpdatedVideos, p.TotalVideos)
				})
			})
		},
	}
	cmd.Flags().StringVar(&urlFlag, "url", "", "Channel URL (overrides channel_url in the file)")
	return cmd
}

func newCompetitorsCommand(ctx *commandContext) *cobra.Command {
	competitorsCmd := &cobra.Command{
		Use:     "competitors",
		Aliases: []string{"competitor"},
		Short:   "List or delete stored competitors",
	}

	competitorsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List competitors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCore(func(core *api.Core) error {
				return emit(ctx, cmd, core.ListCompetitors(cmd.Context()), renderCompetitors)
			})
		},
	})

	competitorsCmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a competitor with its videos and playlists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withCore(func(core *api.Core) error {
				return emit(ctx, cmd, core.DeleteCompetitor(cmd.Context(), id), func(out io.Writer, d api.Deleted) {
					fmt.Fprintf(out, "Deleted competitor %d\n", d.CompetitorID)
				})
			})
		},
	})

	competitorsCmd.AddCommand(&cobra.Command{
		Use:   "duplicates",
		Short: "List competitors stored more than once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCore(func(core *api.Core) error {
				return emit(ctx, cmd, core.FindDuplicateCompetitors(cmd.Context()), renderDuplicates)
			})
		},
	})

	return competitorsCmd
}

func renderDuplicates(out io.Writer, groups []store.DuplicateGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(out, "No duplicate competitors")
		return
	}
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		ids := make([]string, len(g.IDs))
		for i, id := range g.IDs {
			ids[i] = itoa(id)
		}
		rows = append(rows, []string{g.Name, g.ChannelID, strings.Join(ids, ", ")})
	}
	fmt.Fprintln(out, renderTable("", []string{"Name", "Channel", "IDs"}, rows, nil))
}

func renderCompetitors(out io.Writer, items []api.Competitor) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No competitors stored")
		return
	}
	rows := make([][]string, 0, len(items))
	for _, c := range items {
		rows = append(rows, []string{itoa(c.ID), c.Name, c.Country, itoa(c.SubscriberCount), itoa(c.VideoCount), c.LastUpdated})
	}
	fmt.Fprintln(out, renderTable("", []string{"ID", "Name", "Country", "Subscribers", "Videos", "Updated"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid competitor id %q", raw)
	}
	return id, nil
}
