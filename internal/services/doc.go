// Package services defines shared utilities consumed by the analysis
// components and the API facade.
//
// Key responsibilities:
//   - Context helpers that stamp batch IDs, video IDs, competitor IDs,
//     operation names, and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper. Kind translates any
//     wrapped failure into the boundary label reported to collaborators
//     (not_found, conflict, validation, upstream_api, ...).
//
// Use these helpers when wiring new component logic so error classification
// and observability stay uniform.
package services
