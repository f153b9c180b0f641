// Package store persists the primary analytical data set in SQLite:
// competitors (table concurrent), videos, playlists and their links,
// classification feedback, cached KPI bundles, and classifier state.
//
// Writes run in transactions with SQLITE_BUSY retries. Machine
// classification writes carry a guard clause so human labels stay sticky
// even under concurrent writers. RefreshCompetitorData is exclusive per
// channel within the process and across processes through an advisory
// file lock.
package store
