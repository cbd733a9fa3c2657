// Package orchestrator wires schema resolution, the literal walker, the binary
// codec, matchers and generators behind Configure, Verify and Generate,
// providing dependency injection friendly helpers for consumers that prefer a
// single entry point.
package orchestrator
