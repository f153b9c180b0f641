// Package main hosts the ytanalyzer CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into calls on
// the api.Core facade: channel ingestion, HERO/HUB/HELP classification and
// training, comment scraping batches, emotion analysis, brand and country
// metrics, the sentiment snapshot, and configuration scaffolding. It
// centralizes configuration resolution and structured logging setup so
// subcommands can focus on rendering.
//
// Keep this package lean: add new functionality to the internal packages
// first and surface it through the facade, then expose it here. Every
// command accepts --json and prints the facade's result envelope verbatim.
package main
