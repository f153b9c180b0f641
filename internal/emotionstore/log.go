package emotionstore

import (
	"context"
	"fmt"
	"time"
)

// ProcessingLog records one analyser pass.
type ProcessingLog struct {
	StartedAt          time.Time
	FinishedAt         time.Time
	CommentsProcessed  int
	SuccessfulAnalyses int
	Skipped            int
	Failed             int
	BatchSize          int
	ProcessingRate     float64
	ModelName          string
	ErrorDetails       string
}

// InsertProcessingLog appends a pass record.
func (s *Store) InsertProcessingLog(ctx context.Context, entry ProcessingLog) error {
	err := s.exec(ctx,
		`INSERT INTO emotion_processing_log (
            started_at, finished_at, comments_processed, successful_analyses, skipped, failed,
            batch_size, processing_rate, model_name, error_details
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.StartedAt.UTC().Format(timeLayout), entry.FinishedAt.UTC().Format(timeLayout),
		entry.CommentsProcessed, entry.SuccessfulAnalyses, entry.Skipped, entry.Failed,
		entry.BatchSize, entry.ProcessingRate, entry.ModelName, nullableString(entry.ErrorDetails),
	)
	if err != nil {
		return fmt.Errorf("insert processing log: %w", err)
	}
	return nil
}

// ProcessingLogCount returns the number of recorded passes.
func (s *Store) ProcessingLogCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emotion_processing_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count processing log: %w", err)
	}
	return n, nil
}
