package overlay

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestApplyJSONPatchRemovesCollection(t *testing.T) {
	doc := []byte(`[{"name":"REVIEWS"},{"name":"REVIEW_SCORES"}]`)
	patch := []byte(`[{"op":"remove","path":"/1"}]`)

	out, err := (Patcher{}).Apply(context.Background(), doc, patch)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if string(out) != `[{"name":"REVIEWS"}]` {
		t.Fatalf("unexpected output: %s", string(out))
	}
}

func TestApplyMergePatchOverridesDatabase(t *testing.T) {
	doc := []byte(`{"database":"UGC_DB","collections":[]}`)
	patch := []byte(`{"database":"UGC_DB_STAGE"}`)

	out, err := (Patcher{}).Apply(context.Background(), doc, patch)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if !strings.Contains(string(out), `"UGC_DB_STAGE"`) {
		t.Fatalf("unexpected output: %s", string(out))
	}
}

func TestApplyMergePatchNeedsObjectDocument(t *testing.T) {
	_, err := (Patcher{}).Apply(context.Background(), []byte(`[]`), []byte(`{"database":"x"}`))
	if !errors.Is(err, ErrMergeNeedsObject) {
		t.Fatalf("expected ErrMergeNeedsObject, got %v", err)
	}
}

func TestApplyRejectsScalarOverlay(t *testing.T) {
	_, err := (Patcher{}).Apply(context.Background(), []byte(`{}`), []byte(`42`))
	if !errors.Is(err, ErrInvalidOverlay) {
		t.Fatalf("expected ErrInvalidOverlay, got %v", err)
	}
}
