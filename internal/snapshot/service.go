package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ytanalyzer/internal/config"
	"ytanalyzer/internal/emotionstore"
	"ytanalyzer/internal/logging"
	"ytanalyzer/internal/store"
)

// Service resolves snapshots. The stores may be nil; a nil emotions store
// disables the live source.
type Service struct {
	cfg       *config.Config
	emotions  *emotionstore.Store
	primary   *store.Store
	staticDir string
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(cfg *config.Config, emotions *emotionstore.Store, primary *store.Store, logger *slog.Logger) *Service {
	s := &Service{
		cfg:      cfg,
		emotions: emotions,
		primary:  primary,
		logger:   logging.NewComponentLogger(logger, "snapshot"),
		now:      time.Now,
	}
	if cfg != nil {
		s.staticDir = cfg.Paths.StaticDir
	}
	return s
}

type candidate struct {
	source   string
	snapshot *Snapshot
}

// Get returns the best available snapshot. It never fails; unreadable
// sources are logged and skipped.
func (s *Service) Get(ctx context.Context) *Snapshot {
	logger := logging.WithContext(ctx, s.logger)
	var available []candidate

	if s.cfg.ShouldLoadMLModels() && s.emotions != nil {
		live, err := s.Live(ctx)
		switch {
		case err != nil:
			logging.WarnWithContext(logger, "live sentiment snapshot unavailable", "snapshot_live_failed",
				logging.Error(err),
				logging.Impact("serving the exported snapshot instead"),
			)
		case !live.empty():
			available = append(available, candidate{source: SourceDatabase, snapshot: live})
		}
	}

	var files []candidate
	for _, f := range []struct{ name, source string }{
		{ProductionFile, SourceUploadedJSON},
		{BackupFile, SourceLastBackup},
	} {
		snap, err := s.readFile(f.name)
		if err != nil {
			logging.WarnWithContext(logger, "sentiment export unreadable", "snapshot_file_invalid",
				logging.String("file", f.name),
				logging.Error(err),
				logging.Hint("re-upload or delete the file"),
			)
			continue
		}
		if snap != nil && !snap.empty() {
			files = append(files, candidate{source: f.source, snapshot: snap})
		}
	}
	if len(files) == 2 && newer(files[1].snapshot.ExportInfo.ExportDate, files[0].snapshot.ExportInfo.ExportDate) {
		files[0], files[1] = files[1], files[0]
	}
	available = append(available, files...)

	if len(available) == 0 {
		logger.Info("no sentiment data available; serving empty stub")
		return s.stub()
	}
	chosen := available[0].snapshot
	chosen.ExportInfo.DataSourceUsed = available[0].source
	chosen.ExportInfo.AvailableSources = make([]string, 0, len(available))
	for _, c := range available {
		chosen.ExportInfo.AvailableSources = append(chosen.ExportInfo.AvailableSources, c.source)
	}
	chosen.normalize()
	logger.Debug("sentiment snapshot resolved",
		logging.String("source", available[0].source),
		logging.String("export_date", chosen.ExportInfo.ExportDate),
	)
	return chosen
}

func (s *Service) readFile(name string) (*Snapshot, error) {
	if s.staticDir == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(s.staticDir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return &snap, nil
}

func (s *Service) stub() *Snapshot {
	snap := &Snapshot{
		ExportInfo: ExportInfo{
			ExportDate:       s.now().UTC().Format(time.RFC3339),
			Source:           SourceEmptyStub,
			Version:          exportVersion,
			DataSourceUsed:   SourceEmptyStub,
			AvailableSources: []string{},
			Error:            "no data available from any source",
		},
	}
	snap.normalize()
	return snap
}

var exportDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseExportDate(value string) (time.Time, bool) {
	for _, layout := range exportDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// newer reports whether export date a is later than b. Unparseable dates
// compare as strings.
func newer(a, b string) bool {
	ta, okA := parseExportDate(a)
	tb, okB := parseExportDate(b)
	if okA && okB {
		return ta.After(tb)
	}
	return a > b
}
