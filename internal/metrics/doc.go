// Package metrics computes competitor and country KPIs from the primary store.
//
// A Bundle carries seven KPIs plus the shorts distribution. Computation never
// fails on missing or broken data: the bundle is zeroed and its DataQuality
// block explains why. The paid threshold is read from settings.json on every
// call.
package metrics
