package providers

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/codefox/internal/config"
)

// rewriteTransport rewrites all request URLs to point at the test server.
type rewriteTransport struct {
	base    http.RoundTripper
	baseURL string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = "http"
	req.URL.Host = t.baseURL[len("http://"):]
	if t.base != nil {
		return t.base.RoundTrip(req)
	}
	return http.DefaultTransport.RoundTrip(req)
}

func ptr[T any](v T) *T { return &v }

// fastRetry shrinks the back-off for the duration of a test.
func fastRetry(t *testing.T) {
	t.Helper()
	orig := retryBaseDelay
	retryBaseDelay = time.Millisecond
	t.Cleanup(func() { retryBaseDelay = orig })
}

func testConfig(t *testing.T, f config.File, key string) config.Config {
	t.Helper()
	cfg, err := config.New(f, config.Env{APIKey: key})
	if err != nil {
		t.Fatalf("config.New() error: %v", err)
	}
	return cfg
}

// testRepo writes a small source tree and returns its root.
func testRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"main.go":               "package main\n\nfunc main() { run() }\n",
		"util/run.py":           "def run():\n    return 1\n",
		"README.md":             "not collected\n",
		"node_modules/x/dep.js": "module.exports = 1\n",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}
