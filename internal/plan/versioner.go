// Package plan writes generated plan sections to disk as numbered versions
// plus a mirror of the latest version at the plan root.
package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/ChamsBouzaiene/dodo-plan/internal/artifact"
)

// DefaultFolder is the plan root used when none is configured.
const DefaultFolder = "plan"

var versionDirRegex = regexp.MustCompile(`^v([0-9]+)$`)

// Versioner computes version numbers and writes plan files under a project.
type Versioner struct {
	Folder string // Plan root name under the project path
}

// NewVersioner creates a Versioner for the given plan folder name.
func NewVersioner(folder string) *Versioner {
	if folder == "" {
		folder = DefaultFolder
	}
	return &Versioner{Folder: folder}
}

// Root returns the plan root for a project.
func (v *Versioner) Root(projectPath string) string {
	folder := v.Folder
	if folder == "" {
		folder = DefaultFolder
	}
	return filepath.Join(projectPath, folder)
}

// Dir returns the directory holding one plan version.
func (v *Versioner) Dir(projectPath string, version int) string {
	return filepath.Join(v.Root(projectPath), "v"+strconv.Itoa(version))
}

// NextVersion returns one past the highest existing version, or 1 when no
// version directory exists yet.
func (v *Versioner) NextVersion(projectPath string) (int, error) {
	versions, err := v.existing(projectPath)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 1, nil
	}
	return versions[len(versions)-1] + 1, nil
}

// existing returns the version numbers present under the plan root, ascending.
func (v *Versioner) existing(projectPath string) ([]int, error) {
	entries, err := os.ReadDir(v.Root(projectPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read plan root: %w", err)
	}

	var versions []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m := versionDirRegex.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue // overflow; not a version we could have written
		}
		versions = append(versions, n)
	}
	sort.Ints(versions)
	return versions, nil
}

// Write stores every present section as <section>.md in v<version>/ and then
// mirrors the same files into the plan root. Existing files are overwritten.
// A failure part way leaves already written files in place; re-running Write
// with the same arguments is safe.
func (v *Versioner) Write(projectPath string, set artifact.Set, version int) error {
	if version < 1 {
		return fmt.Errorf("invalid plan version %d", version)
	}
	if len(set) == 0 {
		return fmt.Errorf("no plan sections to write")
	}

	versionDir := v.Dir(projectPath, version)
	if err := os.MkdirAll(versionDir, 0755); err != nil {
		return fmt.Errorf("failed to create plan version directory: %w", err)
	}
	if err := writeSections(versionDir, set); err != nil {
		return err
	}
	return writeSections(v.Root(projectPath), set)
}

func writeSections(dir string, set artifact.Set) error {
	for _, sec := range set.Present() {
		path := filepath.Join(dir, sec.Filename())
		if err := os.WriteFile(path, []byte(set[sec]), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}
