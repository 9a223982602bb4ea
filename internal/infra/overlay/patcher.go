package overlay

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

var ErrInvalidOverlay = errors.New("overlay must be a JSON patch array or a merge patch object")
var ErrMergeNeedsObject = errors.New("merge patch overlays need an object-form config")

// Patcher applies environment overlays on top of a base config document. An
// array is an RFC 6902 patch, an object an RFC 7386 merge patch.
type Patcher struct{}

func (Patcher) Apply(ctx context.Context, doc, overlay []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(overlay)
	if len(trimmed) == 0 {
		return nil, ErrInvalidOverlay
	}

	switch trimmed[0] {
	case '[':
		decoded, err := jsonpatch.DecodePatch(trimmed)
		if err != nil {
			return nil, fmt.Errorf("decode patch: %w", err)
		}
		out, err := decoded.Apply(doc)
		if err != nil {
			return nil, fmt.Errorf("apply patch: %w", err)
		}
		return out, nil
	case '{':
		base := bytes.TrimSpace(doc)
		if len(base) == 0 || base[0] != '{' {
			return nil, ErrMergeNeedsObject
		}
		out, err := jsonpatch.MergePatch(base, trimmed)
		if err != nil {
			return nil, fmt.Errorf("apply merge patch: %w", err)
		}
		return out, nil
	default:
		return nil, ErrInvalidOverlay
	}
}
