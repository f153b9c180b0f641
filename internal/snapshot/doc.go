// Package snapshot resolves the sentiment snapshot shown to collaborators.
//
// The live emotions store wins when it holds analyses and ML is enabled.
// Otherwise the newer of the uploaded production export and the last backup
// is served, and an empty stub is returned when nothing is available.
package snapshot
