// Package jobs loads fetch job manifests (YAML or JSON).
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/SaitoAtsushi/thin-http/pkg/inet"
	"gopkg.in/yaml.v3"
)

// Job describes one URL to fetch.
type Job struct {
	ID           string            `json:"id" yaml:"id"`
	URL          string            `json:"url" yaml:"url"`
	Headers      map[string]string `json:"headers" yaml:"headers"`
	Insecure     bool              `json:"insecure" yaml:"insecure"`
	Enabled      *bool             `json:"enabled" yaml:"enabled"`
	ExpectStatus int               `json:"expect_status" yaml:"expect_status"`
}

type manifest struct {
	Jobs []Job `json:"jobs" yaml:"jobs"`
}

// Registry holds the validated jobs of one manifest.
type Registry struct {
	mu   sync.RWMutex
	jobs []Job
	idx  map[string]Job
}

// Load reads and validates a job manifest.
func Load(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("jobs file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jobs file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read jobs file: %w", err)
	}

	m, err := parseManifest(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(m.Jobs)
}

// NewRegistry validates jobs and indexes them by id.
func NewRegistry(jobs []Job) (*Registry, error) {
	if len(jobs) == 0 {
		return nil, errors.New("jobs file contains no jobs entries")
	}

	reg := &Registry{
		jobs: make([]Job, len(jobs)),
		idx:  make(map[string]Job, len(jobs)),
	}
	for i := range jobs {
		j := sanitizeJob(jobs[i])
		if err := validateJob(j); err != nil {
			return nil, fmt.Errorf("jobs[%d]: %w", i, err)
		}
		if _, exists := reg.idx[j.ID]; exists {
			return nil, fmt.Errorf("duplicate job id %q", j.ID)
		}
		reg.jobs[i] = j
		reg.idx[j.ID] = j
	}
	return reg, nil
}

type unmarshalFn func([]byte, any) error

func parseManifest(data []byte, ext string) (manifest, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var m manifest
		if err := d.fn(data, &m); err == nil {
			return m, nil
		}
	}

	return manifest{}, errors.New("jobs file format not recognized (expected YAML or JSON)")
}

func sanitizeJob(j Job) Job {
	j.ID = strings.TrimSpace(j.ID)
	j.URL = strings.TrimSpace(j.URL)
	if j.Enabled == nil {
		def := true
		j.Enabled = &def
	}
	if len(j.Headers) > 0 {
		clean := make(map[string]string, len(j.Headers))
		for k, v := range j.Headers {
			if k = strings.TrimSpace(k); k != "" {
				clean[k] = strings.TrimSpace(v)
			}
		}
		j.Headers = clean
	}
	return j
}

func validateJob(j Job) error {
	if j.ID == "" {
		return errors.New("id is required")
	}
	if j.URL == "" {
		return fmt.Errorf("url is required for job %q", j.ID)
	}
	u, err := url.Parse(j.URL)
	if err != nil {
		return fmt.Errorf("url for job %q: %w", j.ID, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url for job %q must be http or https", j.ID)
	}
	if u.Host == "" {
		return fmt.Errorf("url for job %q has no host", j.ID)
	}
	if j.ExpectStatus != 0 && (j.ExpectStatus < 100 || j.ExpectStatus > 599) {
		return fmt.Errorf("expect_status %d for job %q is not an HTTP status", j.ExpectStatus, j.ID)
	}
	return nil
}

// All returns every job in manifest order.
func (r *Registry) All() []Job {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

// Enabled returns jobs that are enabled.
func (r *Registry) Enabled() []Job {
	all := r.All()
	out := make([]Job, 0, len(all))
	for _, j := range all {
		if j.EnabledValue() {
			out = append(out, j)
		}
	}
	return out
}

// ByID returns the job with the given id.
func (r *Registry) ByID(id string) (Job, bool) {
	if r == nil {
		return Job{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Job{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.idx[id]
	return j, ok
}

// EnabledValue returns the enabled flag defaulting to true.
func (j Job) EnabledValue() bool {
	if j.Enabled == nil {
		return true
	}
	return *j.Enabled
}

// Flags returns the request flags for the job. Insecure jobs drop FlagSecure.
func (j Job) Flags() inet.RequestFlags {
	if j.Insecure {
		return inet.DefaultFlags.Without(inet.FlagSecure)
	}
	return inet.DefaultFlags
}

// StatusOK reports whether code satisfies the job's expectation: the exact
// expect_status when set, any 2xx otherwise.
func (j Job) StatusOK(code int) bool {
	if j.ExpectStatus != 0 {
		return code == j.ExpectStatus
	}
	return code >= 200 && code < 300
}
