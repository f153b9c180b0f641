// Package preflight provides readiness checks for the filesystem paths,
// credentials, and model endpoints the analyzer depends on.
//
// These checks run in two contexts:
//   - The CLI "ytanalyzer status" command renders every result as a table.
//   - "ytanalyzer scrape" runs CheckYouTubeKey before starting a batch so a
//     missing key fails fast instead of marking every video failed.
//
// Checks that need the network are gated by the ML mode: with ML disabled
// the hosted inference endpoint is never contacted.
package preflight
