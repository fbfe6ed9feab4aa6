package version

import "testing"

func TestGet_Defaults(t *testing.T) {
	vi := Get()
	if vi.Version == "" {
		t.Fatal("version should never be empty")
	}
	if vi.Commit == "" {
		t.Fatal("commit should never be empty")
	}
	// GoVersion comes from ReadBuildInfo and is always present under `go test`
	if vi.GoVersion == "" {
		t.Fatal("go version missing")
	}
}
