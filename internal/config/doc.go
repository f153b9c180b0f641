// Package config loads, normalizes, and validates ytanalyzer configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads optional .env files, and honours
// environment variables such as YTA_ENVIRONMENT, YTA_ENABLE_ML, YTA_DB_PATH and
// YOUTUBE_API_KEY. The Config type centralizes every knob the stores, the
// scraper, the classifier and the CLI need.
//
// The paid/organic threshold lives outside the TOML file in settings.json and
// is read through SettingsFile on every metrics computation.
package config
