package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const competitorColumns = "id, name, channel_id, channel_url, thumbnail_url, banner_url, description, subscriber_count, view_count, video_count, country, language, created_at, last_updated"

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanCompetitor(scanner interface{ Scan(dest ...any) error }) (*Competitor, error) {
	var (
		c                                                 Competitor
		channelID, thumb, banner, desc, country, language sql.NullString
		createdRaw, updatedRaw                            string
	)
	if err := scanner.Scan(
		&c.ID, &c.Name, &channelID, &c.ChannelURL, &thumb, &banner, &desc,
		&c.SubscriberCount, &c.ViewCount, &c.VideoCount, &country, &language,
		&createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	c.ChannelID = channelID.String
	c.ThumbnailURL = thumb.String
	c.BannerURL = banner.String
	c.Description = desc.String
	c.Country = country.String
	c.Language = language.String
	if t, err := parseTimeString(createdRaw); err == nil {
		c.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		c.LastUpdated = t
	}
	return &c, nil
}

// GetCompetitor fetches a competitor by row id. Missing rows return nil, nil.
func (s *Store) GetCompetitor(ctx context.Context, id int64) (*Competitor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+competitorColumns+` FROM concurrent WHERE id = ?`, id)
	c, err := scanCompetitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get competitor: %w", err)
	}
	return c, nil
}

// FindCompetitor applies duplicate detection: a row matches when its channel
// URL or channel id equals the candidate, or when lowercased name and
// channel id both match.
func (s *Store) FindCompetitor(ctx context.Context, channelURL, channelID, name string) (*Competitor, error) {
	return findCompetitor(ctx, s.db, channelURL, channelID, name)
}

func findCompetitor(ctx context.Context, q queryer, channelURL, channelID, name string) (*Competitor, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+competitorColumns+` FROM concurrent
         WHERE channel_url = ?
            OR (? <> '' AND channel_id = ?)
            OR (lower(name) = lower(?) AND COALESCE(channel_id, '') = ?)
         ORDER BY id LIMIT 1`,
		strings.TrimSpace(channelURL),
		channelID, channelID,
		strings.TrimSpace(name), channelID,
	)
	c, err := scanCompetitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find competitor: %w", err)
	}
	return c, nil
}

// ErrDuplicateCompetitor reports that CreateCompetitor matched an existing row.
var ErrDuplicateCompetitor = errors.New("competitor already exists")

// CreateCompetitor inserts a new competitor. It returns the existing row and
// ErrDuplicateCompetitor when duplicate detection finds a match.
func (s *Store) CreateCompetitor(ctx context.Context, channelURL string, info *ChannelInfo) (*Competitor, error) {
	var created *Competitor
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, existing, err := insertCompetitor(ctx, tx, channelURL, info)
		if err != nil {
			return err
		}
		if existing != nil {
			created = existing
			return ErrDuplicateCompetitor
		}
		created, err = scanCompetitor(tx.QueryRowContext(ctx, `SELECT `+competitorColumns+` FROM concurrent WHERE id = ?`, id))
		return err
	})
	if errors.Is(err, ErrDuplicateCompetitor) {
		return created, err
	}
	if err != nil {
		return nil, fmt.Errorf("create competitor: %w", err)
	}
	return created, nil
}

// channelIdentity returns the channel id and display name used for duplicate
// detection, falling back to what the URL carries.
func channelIdentity(channelURL string, info *ChannelInfo) (string, string) {
	if info == nil {
		info = &ChannelInfo{}
	}
	channelID := strings.TrimSpace(info.ChannelID)
	if channelID == "" {
		channelID = ExtractChannelID(channelURL)
	}
	name := strings.TrimSpace(info.Name)
	if name == "" {
		name = ChannelNameFromURL(channelURL)
	}
	return channelID, name
}

func insertCompetitor(ctx context.Context, tx *sql.Tx, channelURL string, info *ChannelInfo) (int64, *Competitor, error) {
	if info == nil {
		info = &ChannelInfo{}
	}
	channelURL = strings.TrimSpace(channelURL)
	if channelURL == "" {
		return 0, nil, errors.New("channel url is empty")
	}
	channelID, name := channelIdentity(channelURL, info)

	existing, err := findCompetitor(ctx, tx, channelURL, channelID, name)
	if err != nil {
		return 0, nil, err
	}
	if existing != nil {
		return existing.ID, existing, nil
	}

	now := nowString()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO concurrent (
            name, channel_id, channel_url, thumbnail_url, banner_url, description,
            subscriber_count, view_count, video_count, country, language, created_at, last_updated
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name,
		nullableString(channelID),
		channelURL,
		nullableString(info.ThumbnailURL),
		nullableString(info.BannerURL),
		nullableString(info.Description),
		max(info.SubscriberCount, 0),
		max(info.ViewCount, 0),
		max(info.VideoCount, 0),
		nullableString(info.Country),
		nullableString(info.Language),
		now,
		now,
	)
	if err != nil {
		return 0, nil, fmt.Errorf("insert competitor: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, nil, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil, nil
}

// ListCompetitors returns all competitors ordered by name.
func (s *Store) ListCompetitors(ctx context.Context) ([]*Competitor, error) {
	return s.queryCompetitors(ctx, `SELECT `+competitorColumns+` FROM concurrent ORDER BY lower(name), id`)
}

// CompetitorsByCountry lists the competitors of one country.
func (s *Store) CompetitorsByCountry(ctx context.Context, country string) ([]*Competitor, error) {
	return s.queryCompetitors(ctx,
		`SELECT `+competitorColumns+` FROM concurrent WHERE country = ? ORDER BY lower(name), id`,
		strings.TrimSpace(country))
}

func (s *Store) queryCompetitors(ctx context.Context, query string, args ...any) ([]*Competitor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}
	defer rows.Close()

	var out []*Competitor
	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan competitor: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCompetitor removes a competitor with its videos, playlists, and links.
// It reports whether a row existed.
func (s *Store) DeleteCompetitor(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM concurrent WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete competitor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// FindDuplicateCompetitors lists groups of rows sharing (lowercased name, channel id).
func (s *Store) FindDuplicateCompetitors(ctx context.Context) ([]DuplicateGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lower(name), COALESCE(channel_id, ''), group_concat(id)
         FROM concurrent
         GROUP BY lower(name), COALESCE(channel_id, '')
         HAVING COUNT(*) > 1
         ORDER BY lower(name)`)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}
	defer rows.Close()

	var groups []DuplicateGroup
	for rows.Next() {
		var (
			g   DuplicateGroup
			ids string
		)
		if err := rows.Scan(&g.Name, &g.ChannelID, &ids); err != nil {
			return nil, fmt.Errorf("scan duplicate group: %w", err)
		}
		for _, part := range strings.Split(ids, ",") {
			var id int64
			if _, err := fmt.Sscan(part, &id); err == nil {
				g.IDs = append(g.IDs, id)
			}
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Countries lists distinct competitor countries with their competitor counts.
func (s *Store) Countries(ctx context.Context) ([]CountryCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT country, COUNT(*) FROM concurrent
         WHERE country IS NOT NULL AND country <> ''
         GROUP BY country ORDER BY country`)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	defer rows.Close()

	var out []CountryCount
	for rows.Next() {
		var cc CountryCount
		if err := rows.Scan(&cc.Country, &cc.Competitors); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}
