package loader

import (
	"context"

	"github.com/osvaldoandrade/provision/internal/domain"
	"github.com/osvaldoandrade/provision/internal/infra/configformat"
)

type Source interface {
	ReadConfig(ctx context.Context, path string) ([]byte, error)
}

type FormatDecoder interface {
	ToJSON(ctx context.Context, format configformat.Format, data []byte) ([]byte, error)
}

type Overlayer interface {
	Apply(ctx context.Context, doc, overlay []byte) ([]byte, error)
}

type Validator interface {
	Validate(ctx context.Context, doc []byte) error
}

type Fingerprinter interface {
	Fingerprint(ctx context.Context, doc []byte) (string, error)
}

type RevisionResolver interface {
	Resolve(ctx context.Context, path string) (domain.Revision, error)
}
