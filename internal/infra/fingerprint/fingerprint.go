package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/go-json-experiment/json/jsontext"
)

// Fingerprinter hashes the canonical JSON form of a config document, so
// formatting and member order do not change the result.
type Fingerprinter struct{}

func (Fingerprinter) Fingerprint(ctx context.Context, doc []byte) (string, error) {
	canonical, err := Canonicalize(ctx, doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func Canonicalize(ctx context.Context, input []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value := jsontext.Value(append([]byte(nil), input...))
	if err := value.Canonicalize(); err != nil {
		return nil, fmt.Errorf("canonicalize json: %w", err)
	}
	return []byte(value), nil
}
