package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ytanalyzer/internal/taxonomy"
)

const playlistColumns = "id, concurrent_id, playlist_id, name, description, thumbnail_url, video_count, category, classification_source, human_verified, is_human_validated, classification_confidence, classification_date"

// PropagatedConfidence is stored on videos that inherit a playlist's human label.
const PropagatedConfidence = 90.0

func scanPlaylist(scanner interface{ Scan(dest ...any) error }) (*Playlist, error) {
	var (
		p                                      Playlist
		desc, thumb, category, source, classed sql.NullString
		verified, validated                    int
		confidence                             sql.NullFloat64
	)
	if err := scanner.Scan(
		&p.ID, &p.CompetitorID, &p.PlaylistID, &p.Name, &desc, &thumb, &p.VideoCount,
		&category, &source, &verified, &validated, &confidence, &classed,
	); err != nil {
		return nil, err
	}
	p.Description = desc.String
	p.ThumbnailURL = thumb.String
	p.Category = taxonomy.CategoryFromDB(category.String)
	p.Source = taxonomy.SourceFromDB(source.String)
	p.HumanVerified = verified != 0
	p.HumanValidated = validated != 0
	p.Confidence = confidence.Float64
	p.ClassificationDate = parseNullTime(classed)
	return &p, nil
}

func upsertPlaylist(ctx context.Context, tx *sql.Tx, competitorID int64, in *PlaylistInput) error {
	playlistID := strings.TrimSpace(in.PlaylistID)
	if playlistID == "" {
		return errors.New("playlist: missing playlist id")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = playlistID
	}
	now := nowString()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO playlist (concurrent_id, playlist_id, name, description, thumbnail_url, video_count, created_at, last_updated)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(playlist_id) DO UPDATE SET
            name = excluded.name,
            description = COALESCE(excluded.description, playlist.description),
            thumbnail_url = COALESCE(excluded.thumbnail_url, playlist.thumbnail_url),
            video_count = MAX(playlist.video_count, excluded.video_count),
            last_updated = excluded.last_updated`,
		competitorID, playlistID, name, nullableString(in.Description), nullableString(in.ThumbnailURL),
		len(in.VideoIDs), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert playlist %s: %w", playlistID, err)
	}
	if in.VideoIDs == nil {
		return nil
	}
	return linkPlaylistVideos(ctx, tx, playlistID, in.VideoIDs)
}

// linkPlaylistVideos replaces the membership of a playlist. Unknown video ids are skipped.
func linkPlaylistVideos(ctx context.Context, tx *sql.Tx, playlistID string, videoIDs []string) error {
	var rowID int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM playlist WHERE playlist_id = ?`, playlistID).Scan(&rowID); err != nil {
		return fmt.Errorf("lookup playlist %s: %w", playlistID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_video WHERE playlist_id = ?`, rowID); err != nil {
		return fmt.Errorf("clear playlist links: %w", err)
	}
	for pos, videoID := range videoIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO playlist_video (playlist_id, video_id, position)
             SELECT ?, id, ? FROM video WHERE video_id = ?`,
			rowID, pos, strings.TrimSpace(videoID),
		); err != nil {
			return fmt.Errorf("link video %s: %w", videoID, err)
		}
	}
	return nil
}

// LinkPlaylistVideos replaces the membership of a stored playlist.
func (s *Store) LinkPlaylistVideos(ctx context.Context, playlistID string, videoIDs []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return linkPlaylistVideos(ctx, tx, playlistID, videoIDs)
	})
}

// GetPlaylist fetches a playlist by its YouTube id. Missing rows return nil, nil.
func (s *Store) GetPlaylist(ctx context.Context, playlistID string) (*Playlist, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+playlistColumns+` FROM playlist WHERE playlist_id = ?`, playlistID)
	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}
	return p, nil
}

// ListPlaylists returns a competitor's playlists. A zero id lists every playlist.
func (s *Store) ListPlaylists(ctx context.Context, competitorID int64) ([]*Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlist`
	var args []any
	if competitorID > 0 {
		query += ` WHERE concurrent_id = ?`
		args = append(args, competitorID)
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	var out []*Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PlaylistVideoIDs returns the YouTube ids linked to a playlist in position order.
func (s *Store) PlaylistVideoIDs(ctx context.Context, playlistID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.video_id FROM playlist_video pv
         JOIN playlist p ON p.id = pv.playlist_id
         JOIN video v ON v.id = pv.video_id
         WHERE p.playlist_id = ?
         ORDER BY pv.position, v.id`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("playlist videos: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan playlist video: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ApplyMachinePlaylistLabel writes an automated playlist classification
// unless the playlist is human-labelled.
func (s *Store) ApplyMachinePlaylistLabel(ctx context.Context, playlistID string, category taxonomy.Category, source taxonomy.Source, confidence float64) (bool, error) {
	if !category.Valid() || !source.IsMachine() {
		return false, fmt.Errorf("machine playlist label: invalid %s/%s", category, source)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE playlist SET category = ?, classification_source = ?, classification_confidence = ?,
            classification_date = ?
         WHERE playlist_id = ? AND `+machineWritable+` AND human_verified = 0`,
		string(category), string(source), confidence, nowString(), playlistID,
	)
	if err != nil {
		return false, fmt.Errorf("apply machine playlist label: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SetHumanPlaylistCategory labels a playlist as human-verified and propagates
// the category to every linked video that is not human-labelled. It returns
// the number of videos updated, or -1 when the playlist does not exist.
func (s *Store) SetHumanPlaylistCategory(ctx context.Context, playlistID string, category taxonomy.Category) (int, error) {
	if !category.Valid() {
		return 0, fmt.Errorf("human playlist label: invalid category %q", category)
	}
	propagated := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		propagated = 0
		var rowID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM playlist WHERE playlist_id = ?`, playlistID).Scan(&rowID)
		if errors.Is(err, sql.ErrNoRows) {
			propagated = -1
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup playlist: %w", err)
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE playlist SET category = ?, classification_source = 'human', human_verified = 1,
                is_human_validated = 1, classification_confidence = 100, classification_date = ?, last_updated = ?
             WHERE id = ?`,
			string(category), formatTime(now), formatTime(now), rowID,
		); err != nil {
			return fmt.Errorf("update playlist label: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE video SET category = ?, classification_source = 'propagated',
                classification_confidence = ?, classification_date = ?
             WHERE id IN (SELECT video_id FROM playlist_video WHERE playlist_id = ?) AND `+machineWritable,
			string(category), PropagatedConfidence, formatTime(now), rowID,
		)
		if err != nil {
			return fmt.Errorf("propagate playlist label: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		propagated = int(affected)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("set human playlist category: %w", err)
	}
	return propagated, nil
}

// HumanPlaylistCategories maps each video to the category of the most
// recently human-labelled playlist containing it.
func (s *Store) HumanPlaylistCategories(ctx context.Context) (map[string]taxonomy.Category, error) {
	return s.playlistCategories(ctx, "human playlist categories",
		`SELECT v.video_id, p.category
         FROM playlist_video pv
         JOIN playlist p ON p.id = pv.playlist_id
         JOIN video v ON v.id = pv.video_id
         WHERE (p.classification_source = 'human' OR p.human_verified = 1)
           AND p.category IN ('hero', 'hub', 'help')
         ORDER BY p.classification_date DESC, p.id DESC`)
}

// PlaylistCategories maps each video to the category of a labelled playlist
// containing it. Human-labelled playlists win over machine ones, then the
// most recent label.
func (s *Store) PlaylistCategories(ctx context.Context) (map[string]taxonomy.Category, error) {
	return s.playlistCategories(ctx, "playlist categories",
		`SELECT v.video_id, p.category
         FROM playlist_video pv
         JOIN playlist p ON p.id = pv.playlist_id
         JOIN video v ON v.id = pv.video_id
         WHERE p.category IN ('hero', 'hub', 'help')
         ORDER BY (p.classification_source = 'human' OR p.human_verified = 1) DESC,
                  p.classification_date DESC, p.id DESC`)
}

func (s *Store) playlistCategories(ctx context.Context, op, query string) (map[string]taxonomy.Category, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make(map[string]taxonomy.Category)
	for rows.Next() {
		var videoID, category string
		if err := rows.Scan(&videoID, &category); err != nil {
			return nil, fmt.Errorf("scan playlist category: %w", err)
		}
		if _, seen := out[videoID]; !seen {
			out[videoID] = taxonomy.CategoryFromDB(category)
		}
	}
	return out, rows.Err()
}
