package loader

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/osvaldoandrade/provision/internal/domain"
	"github.com/osvaldoandrade/provision/internal/infra/configformat"
)

const stdinPath = "-"

type Options struct {
	// Format overrides extension based detection when set.
	Format configformat.Format
	// Database overrides the database named in the document.
	Database string
	Overlays []string
}

type Service struct {
	source        Source
	decoder       FormatDecoder
	overlayer     Overlayer
	validator     Validator
	fingerprinter Fingerprinter
	revisions     RevisionResolver
}

func NewService(source Source, decoder FormatDecoder, overlayer Overlayer, validator Validator, fingerprinter Fingerprinter, revisions RevisionResolver) *Service {
	return &Service{
		source:        source,
		decoder:       decoder,
		overlayer:     overlayer,
		validator:     validator,
		fingerprinter: fingerprinter,
		revisions:     revisions,
	}
}

// Load reads the config at path ("-" for stdin) and returns the validated
// schema model. Every input problem comes back as a *domain.ConfigError.
func (s *Service) Load(ctx context.Context, path string, opts Options) (domain.SchemaModel, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return domain.SchemaModel{}, &domain.ConfigError{Err: ErrConfigPathRequired}
	}

	raw, err := s.source.ReadConfig(ctx, path)
	if err != nil {
		return domain.SchemaModel{}, configError(path, "read", err)
	}

	var revision domain.Revision
	if s.revisions != nil && path != stdinPath {
		revision, err = s.revisions.Resolve(ctx, path)
		if err != nil {
			return domain.SchemaModel{}, configError(path, "resolve revision", err)
		}
	}

	format := opts.Format
	if format == "" {
		format = configformat.Detect(path)
	}
	return s.build(ctx, path, raw, format, revision, opts)
}

// LoadReader is Load for an already open stream. Format defaults to JSON.
func (s *Service) LoadReader(ctx context.Context, name string, r io.Reader, opts Options) (domain.SchemaModel, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return domain.SchemaModel{}, configError(name, "read", err)
	}
	format := opts.Format
	if format == "" {
		format = configformat.FormatJSON
	}
	return s.build(ctx, name, raw, format, domain.Revision{}, opts)
}

func (s *Service) build(ctx context.Context, name string, raw []byte, format configformat.Format, revision domain.Revision, opts Options) (domain.SchemaModel, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return domain.SchemaModel{}, configError(name, "", ErrEmptyConfig)
	}

	doc, err := s.decoder.ToJSON(ctx, format, raw)
	if err != nil {
		return domain.SchemaModel{}, configError(name, "decode "+string(format), err)
	}

	doc, err = s.applyOverlays(ctx, doc, opts.Overlays)
	if err != nil {
		return domain.SchemaModel{}, err
	}

	if s.validator != nil {
		if err := s.validator.Validate(ctx, doc); err != nil {
			return domain.SchemaModel{}, configError(name, "structure", err)
		}
	}

	fingerprint := ""
	if s.fingerprinter != nil {
		fingerprint, err = s.fingerprinter.Fingerprint(ctx, doc)
		if err != nil {
			return domain.SchemaModel{}, configError(name, "fingerprint", err)
		}
	}

	decoded, err := decodeDocument(doc)
	if err != nil {
		return domain.SchemaModel{}, configError(name, "decode", err)
	}

	specs := make([]domain.CollectionSpec, 0, len(decoded.Collections))
	for _, item := range decoded.Collections {
		spec, err := item.toSpec()
		if err != nil {
			return domain.SchemaModel{}, configError(name, "collection "+item.Name, err)
		}
		specs = append(specs, spec)
	}

	database := strings.TrimSpace(opts.Database)
	if database == "" {
		database = strings.TrimSpace(decoded.Database)
	}

	model, err := domain.NewSchemaModel(domain.SchemaMeta{
		Database:    database,
		Version:     schemaVersion(decoded.Version, fingerprint),
		Fingerprint: fingerprint,
		Revision:    revision,
	}, specs)
	if err != nil {
		return domain.SchemaModel{}, configError(name, "", err)
	}
	return model, nil
}

func (s *Service) applyOverlays(ctx context.Context, doc []byte, overlays []string) ([]byte, error) {
	if len(overlays) == 0 {
		return doc, nil
	}
	if s.overlayer == nil {
		return nil, configError("", "", ErrOverlayUnavailable)
	}
	for _, path := range overlays {
		raw, err := s.source.ReadConfig(ctx, path)
		if err != nil {
			return nil, configError(path, "read overlay", err)
		}
		patch, err := s.decoder.ToJSON(ctx, configformat.Detect(path), raw)
		if err != nil {
			return nil, configError(path, "decode overlay", err)
		}
		doc, err = s.overlayer.Apply(ctx, doc, patch)
		if err != nil {
			return nil, configError(path, "apply overlay", err)
		}
	}
	return doc, nil
}

func schemaVersion(declared, fingerprint string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	if len(fingerprint) >= 12 {
		return "sha256:" + fingerprint[:12]
	}
	return ""
}

func configError(source, reason string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var cfgErr *domain.ConfigError
	if errors.As(err, &cfgErr) {
		return err
	}
	return &domain.ConfigError{Source: source, Reason: reason, Err: err}
}
