// Package schedule runs benchmark batches and run-store pruning on cron
// schedules.
//
// Schedules use the standard five-field cron syntax or descriptors:
//
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
//   - "@every 30m"   - Every 30 minutes
//
// A run tick that fires while the previous run is still active is skipped,
// so runs never overlap.
package schedule
