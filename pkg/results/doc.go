// Package results defines the records produced by an evaluation run and the
// sinks that persist them.
//
// A run is opened with BeginRun, receives per-dataset scores, confusion
// matrices, rule-set definitions, traces and a cross-ruleset summary, and is
// closed with EndRun. Sinks must be safe for concurrent use because every
// evaluation job records its own results.
//
// Implementations live in sub-packages:
//
//   - storage: SQLite and in-memory stores that also answer queries
//   - export: JSON and CSV writers for stored reports
package results
