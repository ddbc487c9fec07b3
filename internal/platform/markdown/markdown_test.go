package markdown_test

import (
	"strings"
	"testing"

	"pomo/internal/platform/markdown"
)

type note struct {
	ID    string `yaml:"id"`
	Count int    `yaml:"count"`
}

func TestFrontmatterRoundTripKeepsBody(t *testing.T) {
	t.Parallel()
	rendered, err := markdown.EncodeFrontmatter(note{ID: "s-1", Count: 2}, "# Title\n\nnotes\n")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded note
	body, err := markdown.DecodeFrontmatter(rendered, &decoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != "s-1" || decoded.Count != 2 {
		t.Fatalf("unexpected meta %+v", decoded)
	}
	if !strings.HasPrefix(body, "\n# Title") {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestDecodeFrontmatterRejectsUnterminatedHeader(t *testing.T) {
	t.Parallel()
	var decoded note
	if _, err := markdown.DecodeFrontmatter("---\nid: x\n", &decoded); err == nil {
		t.Fatalf("expected error")
	}
}

func TestManagedBlockReplacePreservesUserText(t *testing.T) {
	t.Parallel()
	body := markdown.ReplaceManagedBlock("my notes\n", "status", "v1")
	body = markdown.ReplaceManagedBlock(body, "status", "v2")
	if !strings.HasPrefix(body, "my notes\n") {
		t.Fatalf("user text lost: %q", body)
	}
	if strings.Count(body, "pomo:status:start") != 1 {
		t.Fatalf("block duplicated: %q", body)
	}
	got, ok := markdown.ManagedBlock(body, "status")
	if !ok || got != "v2" {
		t.Fatalf("unexpected block %q ok=%v", got, ok)
	}
	if _, ok := markdown.ManagedBlock("plain", "status"); ok {
		t.Fatalf("expected missing block")
	}
}
