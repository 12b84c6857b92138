// Package testutil holds shared test helpers. The VCR recorder replays
// recorded agent-service exchanges so transport tests can run against real
// wire traffic without network access.
package testutil

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// RecordedClient returns an HTTP client backed by the named cassette under
// testdata/cassettes. Set VCR_MODE=record with live credentials to capture
// a new cassette; without one the calling test is skipped.
func RecordedClient(t *testing.T, name string) *http.Client {
	t.Helper()

	mode := recorder.ModeReplaying
	if os.Getenv("VCR_MODE") == "record" {
		mode = recorder.ModeRecording
	}

	path := filepath.Join("testdata", "cassettes", name)
	if mode == recorder.ModeReplaying {
		if _, err := os.Stat(path + ".yaml"); err != nil {
			t.Skipf("no cassette %s recorded; run with VCR_MODE=record to capture one", name)
		}
	}

	rec, err := recorder.NewAsMode(path, mode, nil)
	if err != nil {
		t.Fatalf("create recorder: %v", err)
	}

	// The agent endpoint host and chat ids vary between recordings; match
	// on method and path only.
	rec.SetMatcher(func(r *http.Request, i cassette.Request) bool {
		recorded, err := url.Parse(i.URL)
		if err != nil {
			return false
		}
		return r.Method == i.Method && r.URL.Path == recorded.Path
	})

	t.Cleanup(func() {
		if err := rec.Stop(); err != nil {
			t.Errorf("stop recorder: %v", err)
		}
	})

	return &http.Client{Transport: rec}
}
