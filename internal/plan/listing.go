package plan

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ChamsBouzaiene/dodo-plan/internal/artifact"
	units "github.com/docker/go-units"
)

// Version describes one plan version found on disk.
type Version struct {
	Number    int
	Dir       string
	Sections  []artifact.Section
	SizeBytes int64
	ModTime   time.Time
}

// HumanSize renders SizeBytes for display, e.g. "12.3kB".
func (v Version) HumanSize() string {
	return units.HumanSize(float64(v.SizeBytes))
}

// Versions lists the plan versions of a project, oldest first.
func (v *Versioner) Versions(projectPath string) ([]Version, error) {
	numbers, err := v.existing(projectPath)
	if err != nil {
		return nil, err
	}

	known := make(map[string]artifact.Section, len(artifact.Sections))
	for _, sec := range artifact.Sections {
		known[sec.Filename()] = sec
	}

	versions := make([]Version, 0, len(numbers))
	for _, n := range numbers {
		dir := v.Dir(projectPath, n)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read plan version %d: %w", n, err)
		}

		ver := Version{Number: n, Dir: dir}
		for _, entry := range entries {
			sec, ok := known[entry.Name()]
			if !ok || entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
			}
			ver.Sections = append(ver.Sections, sec)
			ver.SizeBytes += info.Size()
			if info.ModTime().After(ver.ModTime) {
				ver.ModTime = info.ModTime()
			}
		}
		sortSections(ver.Sections)
		versions = append(versions, ver)
	}
	return versions, nil
}

func sortSections(secs []artifact.Section) {
	order := make(map[artifact.Section]int, len(artifact.Sections))
	for i, sec := range artifact.Sections {
		order[sec] = i
	}
	sort.Slice(secs, func(i, j int) bool { return order[secs[i]] < order[secs[j]] })
}
