// Package reactor provides an in-process saga engine for Go: a directed
// graph of named steps with explicit dependencies, executed batch by
// batch with bounded concurrency, compensated in reverse order when a
// later step fails, and retried with backoff on transient errors.
//
// Reactor is a library, not a service. Build a graph of steps, hand it
// to an engine, and call Execute. There is no store to configure and no
// worker to run — a workflow lives and dies inside one call.
//
// # Quick Start
//
//	b := graph.NewBuilder()
//	b.Input("order_id", true)
//	b.Add(&step.Step{
//	    Name:       "reserve",
//	    Args:       map[string]step.Binding{"order": step.FromInput("order_id")},
//	    Run:        reserveInventory,
//	    Compensate: releaseInventory,
//	})
//	b.Add(&step.Step{
//	    Name:      "charge",
//	    DependsOn: []string{"reserve"},
//	    Args:      map[string]step.Binding{"hold": step.FromStep("reserve")},
//	    Run:       chargeCard,
//	})
//	b.Return("charge")
//	plan, err := b.Build()
//
//	eng := engine.New(plan, engine.WithConcurrency(4))
//	res, err := eng.Execute(ctx, map[string]any{"order_id": "ord-1"})
//
// # Architecture
//
// The root package holds the shared data model: the per-run execution
// Context, immutable step results, and run states. Subsystem packages
// layer on top: graph (validation and batch layering), engine
// (scheduling, retries, compensation), middleware (observer hooks),
// limits (concurrency control), backoff (retry delays), and telemetry
// (span records for external collectors).
//
// All run and trace IDs use TypeID — type-prefixed, K-sortable,
// UUIDv7-based identifiers.
package reactor
