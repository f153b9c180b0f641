package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveClassifierState replaces the persisted training outcome of a variant.
func (s *Store) SaveClassifierState(ctx context.Context, state ClassifierState) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO classifier_state (variant, trained_at, examples_used, category_counts_json, validation_json, prototypes_json)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(variant) DO UPDATE SET
            trained_at = excluded.trained_at,
            examples_used = excluded.examples_used,
            category_counts_json = excluded.category_counts_json,
            validation_json = excluded.validation_json,
            prototypes_json = excluded.prototypes_json`,
		state.Variant, formatTime(state.TrainedAt), state.ExamplesUsed,
		state.CategoryCountsJSON, nullableString(state.ValidationJSON), state.PrototypesJSON,
	)
	if err != nil {
		return fmt.Errorf("save classifier state: %w", err)
	}
	return nil
}

// ClassifierState loads the training outcome of a variant. An empty variant
// returns the most recently trained one. Missing rows return nil, nil.
func (s *Store) ClassifierState(ctx context.Context, variant string) (*ClassifierState, error) {
	query := `SELECT variant, trained_at, examples_used, category_counts_json, COALESCE(validation_json, ''), prototypes_json
              FROM classifier_state`
	var args []any
	if variant != "" {
		query += ` WHERE variant = ?`
		args = append(args, variant)
	}
	query += ` ORDER BY trained_at DESC LIMIT 1`

	var (
		state      ClassifierState
		trainedRaw string
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&state.Variant, &trainedRaw, &state.ExamplesUsed, &state.CategoryCountsJSON,
		&state.ValidationJSON, &state.PrototypesJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load classifier state: %w", err)
	}
	if t, err := parseTimeString(trainedRaw); err == nil {
		state.TrainedAt = t
	}
	return &state, nil
}
