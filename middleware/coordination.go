package middleware

import (
	"context"

	"github.com/seanchatmangpt/reactor"
)

// ClaimFunc attempts to claim exclusive ownership of a step attempt,
// identified by run ID and step name. Returning an error denies the
// claim.
type ClaimFunc func(ctx context.Context, runID, stepName string, attempt int) error

// ReleaseFunc releases a claim taken by ClaimFunc. It is called after
// the attempt settles regardless of outcome.
type ReleaseFunc func(ctx context.Context, runID, stepName string, attempt int)

// CoordinationMiddleware gates step attempts behind an external claim,
// such as a distributed lock or a work-claim table. Register it with
// Critical() so a denied claim blocks the step instead of being
// logged and ignored.
type CoordinationMiddleware struct {
	claim   ClaimFunc
	release ReleaseFunc
}

// Coordination creates claim/release middleware. release may be nil.
func Coordination(claim ClaimFunc, release ReleaseFunc) *CoordinationMiddleware {
	return &CoordinationMiddleware{claim: claim, release: release}
}

func (m *CoordinationMiddleware) Name() string { return "coordination" }

func (m *CoordinationMiddleware) BeforeStep(ctx context.Context, rc *reactor.Context, stepName string, attempt int) error {
	return m.claim(ctx, rc.RunID().String(), stepName, attempt)
}

func (m *CoordinationMiddleware) AfterStep(ctx context.Context, rc *reactor.Context, stepName string, attempt int, res *reactor.StepResult) error {
	if m.release != nil {
		m.release(ctx, rc.RunID().String(), stepName, attempt)
	}
	return nil
}
