package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-json-experiment/json"

	"github.com/osvaldoandrade/provision/internal/domain"
)

type document struct {
	Version     string          `json:"version"`
	Database    string          `json:"database"`
	Collections []collectionDoc `json:"collections"`
}

type collectionDoc struct {
	Name          string     `json:"name"`
	ShardKey      *string    `json:"shardKey"`
	ShardStrategy string     `json:"shardStrategy"`
	IndexFields   []indexDoc `json:"indexFields"`
}

// indexDoc accepts either a bare field name or a full index object.
type indexDoc struct {
	Field     string `json:"field"`
	Direction *int   `json:"direction"`
	Unique    bool   `json:"unique"`
}

func (d *indexDoc) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var field string
		if err := json.Unmarshal(trimmed, &field); err != nil {
			return err
		}
		*d = indexDoc{Field: field}
		return nil
	}
	type plain indexDoc
	var decoded plain
	if err := json.Unmarshal(trimmed, &decoded, json.RejectUnknownMembers(true)); err != nil {
		return err
	}
	*d = indexDoc(decoded)
	return nil
}

func decodeDocument(data []byte) (document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return document{}, ErrEmptyConfig
	}
	strict := json.RejectUnknownMembers(true)
	if trimmed[0] == '[' {
		var collections []collectionDoc
		if err := json.Unmarshal(trimmed, &collections, strict); err != nil {
			return document{}, err
		}
		return document{Collections: collections}, nil
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc, strict); err != nil {
		return document{}, err
	}
	return doc, nil
}

func (c collectionDoc) toSpec() (domain.CollectionSpec, error) {
	spec := domain.CollectionSpec{Name: c.Name}
	if c.ShardKey != nil {
		strategy, err := domain.ParseShardStrategy(c.ShardStrategy)
		if err != nil {
			return domain.CollectionSpec{}, err
		}
		spec.ShardKey = &domain.ShardKey{Field: strings.TrimSpace(*c.ShardKey), Strategy: strategy}
	} else if c.ShardStrategy != "" {
		return domain.CollectionSpec{}, fmt.Errorf("%w: %s sets shardStrategy without shardKey", domain.ErrShardKeyRequired, c.Name)
	}

	for _, item := range c.IndexFields {
		direction := domain.DefaultDirection
		if item.Direction != nil {
			parsed, err := domain.ParseDirection(*item.Direction)
			if err != nil {
				return domain.CollectionSpec{}, fmt.Errorf("%s.%s: %w", c.Name, item.Field, err)
			}
			direction = parsed
		}
		spec.Indexes = append(spec.Indexes, domain.IndexSpec{
			Field:     strings.TrimSpace(item.Field),
			Direction: direction,
			Unique:    item.Unique,
		})
	}
	return spec, nil
}
