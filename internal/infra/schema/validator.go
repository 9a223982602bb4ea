package schema

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/go-json-experiment/json"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed config.schema.json
var configSchema []byte

const configSchemaURL = "config.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(configSchemaURL, bytes.NewReader(configSchema)); err != nil {
			compileErr = fmt.Errorf("load config schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(configSchemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile config schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// ConfigValidator checks the structure of a config document before it is
// decoded into the schema model.
type ConfigValidator struct{}

func (ConfigValidator) Validate(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	var value any
	if err := json.Unmarshal(doc, &value); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := sch.Validate(value); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Document returns the embedded JSON Schema so it can be published or printed.
func Document() []byte {
	return append([]byte(nil), configSchema...)
}
