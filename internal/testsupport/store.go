package testsupport

import (
	"context"
	"testing"

	"ytanalyzer/internal/config"
	"ytanalyzer/internal/emotionstore"
	"ytanalyzer/internal/store"
)

// MustOpenStore opens the primary store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustOpenEmotionStore opens the emotions store for tests and registers cleanup.
func MustOpenEmotionStore(t testing.TB, cfg *config.Config) *emotionstore.Store {
	t.Helper()

	st, err := emotionstore.Open(cfg.Paths.EmotionsDB)
	if err != nil {
		t.Fatalf("emotionstore.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustRefresh ingests videos for a channel and returns the refresh stats.
func MustRefresh(t testing.TB, st *store.Store, channelURL string, videos []store.VideoInput, info *store.ChannelInfo) store.RefreshStats {
	t.Helper()

	stats, err := st.RefreshCompetitorData(context.Background(), channelURL, videos, info)
	if err != nil {
		t.Fatalf("RefreshCompetitorData: %v", err)
	}
	return stats
}
