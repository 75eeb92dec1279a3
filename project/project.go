package project

import (
	"fmt"
	"os"
	"path/filepath"
)

type Artifact struct {
	Name      string // label used in confirmation messages, e.g. "src folder"
	LocalPath string
	Recursive bool
}

type Project struct {
	Root string
}

// Current returns the project rooted at the directory the command was invoked from.
func Current() (*Project, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("fail to get the current directory, error: %v", err)
	}

	return &Project{Root: dir}, nil
}

func (p *Project) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(p.Root, path)
}

// Artifacts returns the source tree followed by the manifest file.
// The source tree is always copied recursively and the manifest never is.
func (p *Project) Artifacts(source, manifest string) []Artifact {
	sourcePath := p.resolve(source)
	manifestPath := p.resolve(manifest)

	return []Artifact{
		{
			Name:      filepath.Base(sourcePath) + " folder",
			LocalPath: sourcePath,
			Recursive: true,
		},
		{
			Name:      filepath.Base(manifestPath),
			LocalPath: manifestPath,
		},
	}
}

func (p *Project) Path(elem ...string) string {
	return filepath.Join(append([]string{p.Root}, elem...)...)
}
