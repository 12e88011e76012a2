// Package engine executes a validated workflow plan: it walks the
// plan's batches, materializes step arguments, runs each batch's steps
// concurrently under an admission limit, retries transient failures
// with backoff, and unwinds completed work through per-step
// compensation when a step fails terminally.
//
// This package sits above all subsystem packages: graph supplies the
// plan, step supplies the work units, limits gates admission, backoff
// paces retries, middleware observes boundaries, and telemetry carries
// the emitted span records.
//
// Execute never returns an error for business failures — a failed or
// timed-out run still produces a Result carrying every step error and
// every compensation outcome in the order encountered. The only error
// paths are precondition failures: a missing required input, or a
// critical middleware rejecting the run before any step launches.
package engine
