// Package memory implements the per-agent marketplace history: append-only
// memory records with capped retention, an incrementally aggregated profile
// per agent, substring search, and the effectiveness-based advice that feeds
// recommendations.
//
// The store is process-local and mutex-guarded. Every record is additionally
// mirrored best-effort to an external persistence collaborator through
// mirror.Tee; the local append always succeeds regardless of the mirror's
// outcome.
package memory
