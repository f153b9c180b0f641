// Package api is the typed entry layer of the analyzer. Collaborators (the
// CLI, a web front end) call Core methods and receive Result values instead
// of Go errors, so failures cross the boundary as "<kind>:<message>" strings.
//
// # Key Types
//
// Core: owns both stores and the classifier, metrics, snapshot, scraper,
// analyzer, and batch services built on top of them.
//
// Result: success flag, error string, and typed payload returned by every
// operation.
//
// Competitor/Video: transport representations of stored rows with
// snake_case JSON tags and RFC3339 timestamps.
//
// # Design Notes
//
// Each call runs under a fresh correlation id and logs its operation name.
// Panics inside an operation are recovered and reported with the internal
// kind. Store-level sentinels (busy refresh, missing rows) are translated to
// the conflict and not_found kinds here so the stores stay free of facade
// vocabulary.
package api
