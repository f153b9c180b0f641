// Package youtube reads comment threads through the generated YouTube Data
// API v3 client. It maps API failures onto the services error sentinels and
// retries transient failures with exponential backoff.
package youtube
