// Package diag defines the diagnostic model shared by every stage of the
// class/ownership core.
//
// # Data model
//
// Diagnostic is the central record: Severity, Code, Message, the Primary
// source.Span of the offending construct and optional Notes pointing at
// related declarations ("field declared here").
//
// Codes are grouped by family and keep a stable textual ID:
//
//   - DCL1xxx: declaration-shape errors of the Class Table. They are collected
//     for the whole unit, never aborted-on-first.
//   - MOV2xxx: move-discipline errors. They abort lowering of one body only.
//   - LAY3xxx: inline layout errors, local to one class or instantiation site.
//   - LOW4xxx: other lowering errors (unknown members, arity, misuse of async).
//   - UNT5xxx: unit file / IO problems reported by the loader.
//
// # Emitting
//
// Core components return *Error (or ErrorList for batched checks) so callers
// can inspect the code with errors.As. The driver turns them into Diagnostics
// through a Reporter; BagReporter collects into a Bag which supports sorting
// and deduplication before rendering in internal/diagfmt.
package diag
