// Package curriculum loads the learning roadmap from curriculum.json.
package curriculum

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultFile is the roadmap file name in the workspace.
const DefaultFile = "curriculum.json"

// ErrNotFound is returned when the roadmap file does not exist.
var ErrNotFound = errors.New("roadmap not found")

// Phase is one stage of the roadmap.
type Phase struct {
	Phase  string   `json:"phase"`
	Topics []string `json:"topics"`
}

// Roadmap is the ordered list of phases.
type Roadmap struct {
	Phases []Phase `json:"roadmap"`
}

// Load reads the roadmap at path.
func Load(path string) (*Roadmap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read roadmap: %w", err)
	}

	var r Roadmap
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse roadmap: %w", err)
	}
	return &r, nil
}

// TopicCount returns the number of topics across all phases.
func (r *Roadmap) TopicCount() int {
	n := 0
	for _, p := range r.Phases {
		n += len(p.Topics)
	}
	return n
}

// Render formats the roadmap as plain text, one bracketed heading per phase.
func (r *Roadmap) Render() string {
	var sb strings.Builder
	sb.WriteString("--- LEARNING ROADMAP ---\n")
	for _, p := range r.Phases {
		fmt.Fprintf(&sb, "\n[%s]\n", p.Phase)
		for _, topic := range p.Topics {
			fmt.Fprintf(&sb, "  - %s\n", topic)
		}
	}
	sb.WriteString("\n------------------------\n")
	return sb.String()
}
