package slug_test

import (
	"testing"

	"pomo/internal/platform/slug"
)

func TestMake(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"Alice Smith":   "alice-smith",
		"  ../etc  ":    "etc",
		"user@mail.com": "user-mail-com",
		"***":           "_anonymous",
	}
	for in, want := range cases {
		if got := slug.Make(in, "_anonymous"); got != want {
			t.Fatalf("Make(%q) = %q, want %q", in, got, want)
		}
	}
}
