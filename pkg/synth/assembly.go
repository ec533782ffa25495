package synth

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const ManifestVersion = "1.0"

type (
	// Assembly is the result of one synthesis pass: the manifest plus every
	// rendered template, staged in memory. Nothing touches disk until
	// [Assembly.Write], so a failed pass leaves no partial output.
	Assembly struct {
		Manifest Manifest
		files    map[string][]byte
	}

	Manifest struct {
		ID      string          `yaml:"id" json:"id"`
		Version string          `yaml:"version" json:"version"`
		Stacks  []StackArtifact `yaml:"stacks" json:"stacks"`
	}

	// StackArtifact describes one deployable template. DependsOn lists
	// stacks that must be deployed first.
	StackArtifact struct {
		Name         string   `yaml:"name" json:"name"`
		TemplateFile string   `yaml:"templateFile" json:"templateFile"`
		Account      string   `yaml:"account" json:"account"`
		Region       string   `yaml:"region" json:"region"`
		DependsOn    []string `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
	}
)

const manifestFile = "manifest.yaml"

func newAssembly(id string) *Assembly {
	return &Assembly{
		Manifest: Manifest{ID: id, Version: ManifestVersion},
		files:    make(map[string][]byte),
	}
}

func (a *Assembly) stage(name string, content []byte) {
	a.files[name] = content
}

// Files returns the staged file names in lexical order.
func (a *Assembly) Files() []string {
	names := make([]string, 0, len(a.files))
	for name := range a.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// File returns the staged content of name.
func (a *Assembly) File(name string) ([]byte, bool) {
	content, ok := a.files[name]
	return content, ok
}

func (a *Assembly) finalize() error {
	manifest, err := yaml.Marshal(a.Manifest)
	if err != nil {
		return errors.Wrap(err, "could not marshal assembly manifest")
	}
	a.stage(manifestFile, manifest)
	return nil
}

// Write materializes the assembly into dir, creating it if needed.
func (a *Assembly) Write(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "could not create assembly directory %s", dir)
	}
	for _, name := range a.Files() {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, a.files[name], 0644); err != nil {
			return errors.Wrapf(err, "could not write %s", path)
		}
	}
	return nil
}
