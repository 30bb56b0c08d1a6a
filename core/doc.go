// Package core provides the foundational domain types and error model shared
// by every marketplace component. It defines:
//
//   - Entities: AgentProfile, IntelligenceListing, Transaction,
//     ReasoningCommit / ReasoningReveal, MemoryRecord and the aggregated
//     AgentMemoryProfile
//   - The stable error codes, sentinel errors and the Failure envelope
//     surfaced to callers
//   - FailurePolicy, the injected retry / classification policy used wherever
//     a component talks to a best-effort collaborator
//
// The package intentionally keeps implementation concerns (stores, scoring,
// orchestration) out of scope so the domain model stays dependency-light and
// every component speaks the same vocabulary.
package core
