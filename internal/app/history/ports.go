package history

import (
	"context"

	"github.com/osvaldoandrade/provision/internal/domain"
)

type Store interface {
	Append(ctx context.Context, run StoredRun) error
	List(ctx context.Context, limit int) ([]StoredRun, error)
}

type PlanEncoder interface {
	Encode(plan domain.Plan) ([]byte, error)
}

type PlanDecoder interface {
	Decode(data []byte) (domain.Plan, error)
}
