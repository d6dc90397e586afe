// Package profile persists the learner's name and last project between runs.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gemtutor/internal/logging"
)

// DefaultFile is the profile file name in the workspace.
const DefaultFile = "user_profile.json"

// Data is the on-disk profile schema.
type Data struct {
	Name        string `json:"name,omitempty"`
	LastProject string `json:"last_project,omitempty"`
}

// Profile is a file-backed user profile. Setters write through immediately.
type Profile struct {
	mu   sync.RWMutex
	path string
	data Data
}

// Load reads the profile at path. A missing or unreadable file yields an
// empty profile; the file is only created on the first setter call.
func Load(path string) *Profile {
	p := &Profile{path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Get(logging.CategoryProfile).Warn("Failed to read profile %s: %v", path, err)
		}
		return p
	}
	if err := json.Unmarshal(raw, &p.data); err != nil {
		logging.Get(logging.CategoryProfile).Warn("Ignoring corrupt profile %s: %v", path, err)
		p.data = Data{}
	}
	return p
}

// Path returns the profile file location.
func (p *Profile) Path() string { return p.path }

// Name returns the learner's name, or "" if unknown.
func (p *Profile) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data.Name
}

// LastProject returns the most recently used project, or "".
func (p *Profile) LastProject() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data.LastProject
}

// SetName stores the learner's name and saves.
func (p *Profile) SetName(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data.Name = name
	return p.saveLocked()
}

// SetLastProject stores the last project and saves.
func (p *Profile) SetLastProject(project string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data.LastProject = project
	return p.saveLocked()
}

func (p *Profile) saveLocked() error {
	if dir := filepath.Dir(p.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create profile directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(p.data, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
