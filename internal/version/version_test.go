package version

import "testing"

func TestCurrentString(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "v1.2.0"
	info := Current()
	if info.Version != "v1.2.0" || info.Commit != Commit {
		t.Fatalf("unexpected info %+v", info)
	}
	if got, want := info.String(), "calcache v1.2.0 (commit unknown, built unknown)"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
