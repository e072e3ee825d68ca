// Package store provides a SQLite-backed catalog of named query expressions.
//
// The catalog keeps these tables:
//   - Expressions: canonical JSON bodies keyed by their content-addressed ID
//   - Revisions: per-name history pointing at an expression body
//   - Expression terms and fields: NFC search keys used by Find
//
// # Invariants
//
// Only well-formed expressions are stored. Put validates before writing
// and returns the qexpr.ValidateError (wrapped) on failure.
//
// Bodies are deduplicated by ID. Two names saving the same tree share one
// row in expressions.
//
// Revision order uses seq INTEGER (logical clock per name), never
// timestamps. Saving a tree equal to the current head is a no-op.
//
// Search keys are written once, when a body is first stored, and are
// removed with the body by Prune.
//
// Every multi-row read includes ORDER BY ... COLLATE BINARY so results are
// identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
