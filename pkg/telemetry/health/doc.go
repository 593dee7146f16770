// Package health serves liveness and readiness probes for the long
// running valve modes, watch and schedule.
//
// The liveness probe answers 200 while the process is serving. The
// readiness probe runs the registered checks:
//
//   - last_run: a validation run has completed, and not longer ago than
//     telemetry.health.max_run_age when that is set
//   - store: the run history database answers a ping, when enabled
//
// A RunTracker is a valve.Observer; wire it into the runner's observers
// so each completed run resets the age.
package health
