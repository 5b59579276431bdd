// Package runlog keeps a SQLite ledger of external job executions.
//
// Every toolkit command the pipeline runs is recorded best-effort with its
// exit code, duration, and a stderr tail, giving the operator a queryable
// history when a stage misbehaves long after the console output is gone.
// Ledger failures never affect pipeline state.
package runlog
