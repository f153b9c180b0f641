// Package batch runs comment scraping jobs in the background.
//
// The Manager keeps an in-memory table of jobs keyed by an 8 character id.
// At most one job is active at a time; stopping a job is cooperative and
// takes effect between videos.
package batch
