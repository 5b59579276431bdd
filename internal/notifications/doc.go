// Package notifications delivers pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Individual event classes (labeling ready, training outcomes, failures) can
// be switched off in configuration; disabled events publish as no-ops so the
// orchestrator never has to check flags itself.
//
// Extend this package if you need alternative transports; pipeline code
// depends only on the simple Service interface.
package notifications
