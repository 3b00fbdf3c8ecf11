// Package main hosts the streamwatch CLI entrypoint and command graph.
//
// The Cobra-based command tree surfaces one-off check runs, detection
// history, retention pruning, dashboard generation, daemon status, and
// configuration scaffolding. It centralizes configuration resolution and
// logging setup so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
