package common

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// RequireNoDiff fails the test immediately if want and got differ, printing
// a cmp diff (-want +got).
func RequireNoDiff(t testing.TB, want, got any, opts ...cmp.Option) {
	t.Helper()

	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
