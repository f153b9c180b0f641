// Package sentiment runs the comment pipeline: the scraper pulls comment
// threads from YouTube into the emotions store under a daily quota budget,
// and the analyser labels pending comments positive, neutral, or negative and
// rebuilds the per-video emotion summaries.
//
// Two sentiment models are available. InferenceModel calls a hosted
// text-classification endpoint; LexiconModel is an offline multilingual
// word list used when ML is disabled or no endpoint token is configured.
package sentiment
