// Package model defines the shared contract types produced while configuring
// an Avro interaction: matching rules, generators, the ordered path indexes
// that hold them, and the error taxonomy every other package reports through.
//
// Rules and generators are keyed by category (always "body" for message
// contents) and then by canonical field path such as `$.items.0.id`. Paths
// keep insertion order so JSON snapshots are deterministic. A path may carry
// matching rules and a generator at the same time; the two registries are
// independent.
package model
