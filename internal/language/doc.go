// Package language detects the language of short texts and normalises
// language codes.
//
// Detection is a marker-word count over French, German, Dutch, and English.
// Anything else collapses to Other.
package language
