// Package main hosts the voiceloom CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// pipeline operations: project creation, source uploads, preprocessing and
// training triggers with progress polling, transcript label edits, run
// ledger queries, and configuration scaffolding. It centralizes
// configuration resolution and pipeline wiring so subcommands can focus on
// user experience instead of setup.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
// That separation keeps the CLI declarative while the heavy lifting lives
// in reusable pipeline components.
package main
