// Package emotionstore persists the comment pipeline: raw scraped comments,
// per-comment emotions, scraping progress, and per-video summaries.
//
// The database runs in WAL mode with relaxed synchronous writes. References
// to primary-store videos are logical only.
package emotionstore
