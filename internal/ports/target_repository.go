package ports

import (
	"context"

	"github.com/bnema/hrepl/internal/domain"
)

type TargetRepository interface {
	GetByID(ctx context.Context, id domain.TargetID) (domain.Target, error)
	List(ctx context.Context) ([]domain.Target, error)
	Save(ctx context.Context, target domain.Target) error
}
