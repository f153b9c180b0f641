// Package textutil provides tokenisation and vector similarity for the
// classifiers.
//
// Tokens are lower-cased, accent-folded, stripped of stop words in French,
// English, German, and Dutch, and kept only when longer than two runes.
// Fingerprints are sparse term-frequency vectors that can be re-weighted with
// corpus IDF; dense helpers cover embedding vectors.
package textutil
