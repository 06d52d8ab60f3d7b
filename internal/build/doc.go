// Package build turns a loaded configuration into a running engine.
//
// All execution paths (the build command, watch mode, tests) route through
// BuildService. The service owns the engine between runs so the execution
// cache and process-once state carry over from one build to the next, and it
// attaches the run observers selected by the configuration: Prometheus
// metrics, the SQLite run history and NATS notifications.
package build
