package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
)

// Runner is one orchestrator invocation.
type Runner interface {
	Run(ctx context.Context) error
}

// ErrUnknownTrigger is returned for trigger identities with no job.
var ErrUnknownTrigger = errors.New("unknown trigger")

// ForTrigger maps a trigger identity to exactly one orchestrator.
func ForTrigger(trigger string, deps Deps) (Runner, error) {
	switch trigger {
	case domain.RunTypeDiscovery:
		return NewDiscovery(deps), nil
	case domain.RunTypeSweep:
		return NewSweep(deps), nil
	case domain.RunTypeVerification:
		return NewVerification(deps), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrigger, trigger)
	}
}
