package invoicing

import (
	"context"
	"fmt"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
)

// DuplicateGuard answers whether a (reference, customer code) pair already
// has a posted attempt in the audit log.
type DuplicateGuard struct {
	repo invoicing.AuditLogRepository
}

// NewDuplicateGuard creates a guard over the audit log
func NewDuplicateGuard(repo invoicing.AuditLogRepository) *DuplicateGuard {
	return &DuplicateGuard{repo: repo}
}

// IsAlreadyPosted reports whether the pair was posted before.
// A store failure is returned as ErrDuplicateCheckFailed; callers must not post.
func (g *DuplicateGuard) IsAlreadyPosted(ctx context.Context, reference, customerCode string) (bool, error) {
	posted, err := g.repo.ExistsPosted(ctx, reference, customerCode)
	if err != nil {
		return false, fmt.Errorf("%w: %v", invoicing.ErrDuplicateCheckFailed, err)
	}
	return posted, nil
}
