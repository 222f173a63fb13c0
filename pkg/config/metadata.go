package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/canonical/discourse-gatekeeper/internal/errors"
)

// Metadata is the subset of a charm's metadata.yaml/charmcraft.yaml this
// tool reads: the charm name (used to derive the Discourse index title) and
// the optional docs key some charms still carry from before migration.
type Metadata struct {
	Name string  `yaml:"name"`
	Docs *string `yaml:"docs,omitempty"`
}

// metadataCandidates are tried in order; charmcraft.yaml is the current
// convention, metadata.yaml the legacy one still present in older charms.
var metadataCandidates = []string{"charmcraft.yaml", "metadata.yaml"}

// LoadMetadata reads and parses the first metadata file found directly under
// charmDir.
func LoadMetadata(charmDir string) (*Metadata, error) {
	var lastErr error
	for _, name := range metadataCandidates {
		path := filepath.Join(charmDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				lastErr = err
				continue
			}
			return nil, errors.WrapInput("failed to read "+path, err)
		}

		var meta Metadata
		if err := yaml.Unmarshal(data, &meta); err != nil {
			return nil, errors.WrapInput("failed to parse "+path, err)
		}
		if meta.Name == "" {
			return nil, errors.NewInput(path + " is missing the required name field")
		}
		return &meta, nil
	}
	return nil, errors.WrapInput("no metadata.yaml or charmcraft.yaml found in "+charmDir, lastErr)
}
