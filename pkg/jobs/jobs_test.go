package jobs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/SaitoAtsushi/thin-http/pkg/inet"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "jobs.yaml", `
jobs:
  - id: " example "
    url: http://example.com/
    headers:
      Accept: " text/html "
  - id: local
    url: http://127.0.0.1:8080/health
    insecure: true
    enabled: false
    expect_status: 204
`)

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reg.All()) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(reg.All()))
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "example" {
		t.Fatalf("unexpected enabled jobs %#v", enabled)
	}
	if enabled[0].Headers["Accept"] != "text/html" {
		t.Fatalf("headers not sanitized: %#v", enabled[0].Headers)
	}

	local, ok := reg.ByID("local")
	if !ok {
		t.Fatalf("ByID(local) missing")
	}
	if local.Flags().Has(inet.FlagSecure) {
		t.Fatalf("insecure job must not carry FlagSecure")
	}
	if !enabled[0].Flags().Has(inet.FlagSecure) {
		t.Fatalf("default job must carry FlagSecure")
	}
	if !local.StatusOK(204) || local.StatusOK(200) {
		t.Fatalf("expect_status not honoured")
	}
	if !enabled[0].StatusOK(200) || enabled[0].StatusOK(301) {
		t.Fatalf("default 2xx expectation not honoured")
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "jobs.json", `{"jobs":[{"id":"a","url":"https://example.com/a"}]}`)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := reg.ByID("a"); !ok {
		t.Fatalf("expected job a")
	}
}

func TestLoadRejectsInvalidManifests(t *testing.T) {
	cases := map[string]string{
		"empty":       "jobs: []",
		"missing id":  "jobs:\n  - url: https://example.com\n",
		"missing url": "jobs:\n  - id: a\n",
		"bad scheme":  "jobs:\n  - id: a\n    url: ftp://example.com\n",
		"duplicate":   "jobs:\n  - id: a\n    url: https://example.com\n  - id: a\n    url: https://example.org\n",
		"bad status":  "jobs:\n  - id: a\n    url: https://example.com\n    expect_status: 42\n",
		"not yaml":    "jobs: [",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "jobs.yaml", content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadMissingPath(t *testing.T) {
	if _, err := Load(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
