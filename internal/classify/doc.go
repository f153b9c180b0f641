// Package classify labels videos and playlists as HERO, HUB, or HELP.
//
// Four signals are resolved in strict priority: a human label is never
// overwritten, a human-labelled playlist propagates its category to the
// videos it contains, the semantic classifier labels the rest, and the
// keyword classifier catches what the semantic model cannot score.
//
// The semantic classifier has three interchangeable variants (dense
// embeddings, int8-quantised embeddings, TF-IDF) selected at runtime by the
// Provider from configuration and availability.
package classify
