// Package diag defines the diagnostic model shared by the lowering driver and
// the CLI.
//
// Diagnostic is the central record: severity, a stable numeric code, a short
// message, the primary span, the function it concerns and optional notes.
// Producers emit through a Reporter; BagReporter collects into a bounded Bag,
// which supports sorting and deduplication. Rendering lives in format.go.
package diag
