package plan

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/ChamsBouzaiene/dodo-plan/internal/artifact"
)

func mkdirs(t *testing.T, root string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	for _, name := range names {
		if err := os.MkdirAll(filepath.Join(root, name), 0755); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
}

func TestNextVersion(t *testing.T) {
	tests := []struct {
		name string
		dirs []string
		want int
	}{
		{"absent root", nil, 1},
		{"empty root", []string{}, 1},
		{"gaps", []string{"v1", "v2", "v7"}, 8},
		{"ignores non matching", []string{"v1", "foo", "v3abc", "v3"}, 4},
		{"only non matching", []string{"foo", "vx", "V2"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := t.TempDir()
			v := NewVersioner("plan")
			if tt.dirs != nil {
				mkdirs(t, v.Root(project), tt.dirs...)
			}

			got, err := v.NextVersion(project)
			if err != nil {
				t.Fatalf("NextVersion failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("NextVersion = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextVersion_IgnoresFiles(t *testing.T) {
	project := t.TempDir()
	v := NewVersioner("")
	mkdirs(t, v.Root(project), "v1")
	if err := os.WriteFile(filepath.Join(v.Root(project), "v9"), []byte("not a dir"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	got, err := v.NextVersion(project)
	if err != nil {
		t.Fatalf("NextVersion failed: %v", err)
	}
	if got != 2 {
		t.Errorf("NextVersion = %d, want 2", got)
	}
}

func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, _ := filepath.Rel(root, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk failed: %v", err)
	}
	sort.Strings(files)
	return files
}

func TestWrite(t *testing.T) {
	project := t.TempDir()
	v := NewVersioner("plan")
	set := artifact.Set{
		artifact.SectionPRD:   "  # PRD\n\nBuild a shop.\n",
		artifact.SectionTasks: "- [ ] one",
	}

	if err := v.Write(project, set, 3); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	want := []string{"prd.md", "tasks.md", "v3/prd.md", "v3/tasks.md"}
	got := listFiles(t, v.Root(project))
	if len(got) != len(want) {
		t.Fatalf("expected files %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("file %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	for _, rel := range want {
		data, err := os.ReadFile(filepath.Join(v.Root(project), rel))
		if err != nil {
			t.Fatalf("failed to read %s: %v", rel, err)
		}
		expected := set[artifact.SectionTasks]
		if filepath.Base(rel) == "prd.md" {
			expected = set[artifact.SectionPRD]
		}
		if string(data) != expected {
			t.Errorf("%s: content %q, want %q", rel, data, expected)
		}
	}
}

func TestWrite_Idempotent(t *testing.T) {
	project := t.TempDir()
	v := NewVersioner("docs")
	set := artifact.Set{artifact.SectionStack: "Go + SQLite"}

	for i := 0; i < 2; i++ {
		if err := v.Write(project, set, 1); err != nil {
			t.Fatalf("Write #%d failed: %v", i+1, err)
		}
	}

	got := listFiles(t, v.Root(project))
	if len(got) != 2 || got[0] != "stack.md" || got[1] != "v1/stack.md" {
		t.Fatalf("unexpected files after repeated write: %v", got)
	}
	data, err := os.ReadFile(filepath.Join(v.Dir(project, 1), "stack.md"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "Go + SQLite" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestWrite_MirrorTracksLatest(t *testing.T) {
	project := t.TempDir()
	v := NewVersioner("plan")

	if err := v.Write(project, artifact.Set{artifact.SectionPRD: "first"}, 1); err != nil {
		t.Fatalf("Write v1 failed: %v", err)
	}
	if err := v.Write(project, artifact.Set{artifact.SectionPRD: "second"}, 2); err != nil {
		t.Fatalf("Write v2 failed: %v", err)
	}

	current, _ := os.ReadFile(filepath.Join(v.Root(project), "prd.md"))
	old, _ := os.ReadFile(filepath.Join(v.Dir(project, 1), "prd.md"))
	if string(current) != "second" || string(old) != "first" {
		t.Errorf("mirror=%q v1=%q", current, old)
	}

	next, err := v.NextVersion(project)
	if err != nil || next != 3 {
		t.Errorf("NextVersion = %d, %v; want 3", next, err)
	}
}

func TestWrite_RejectsEmpty(t *testing.T) {
	v := NewVersioner("plan")
	if err := v.Write(t.TempDir(), artifact.Set{}, 1); err == nil {
		t.Error("expected error for empty set")
	}
	if err := v.Write(t.TempDir(), artifact.Set{artifact.SectionUI: "x"}, 0); err == nil {
		t.Error("expected error for version 0")
	}
}

func TestVersions(t *testing.T) {
	project := t.TempDir()
	v := NewVersioner("plan")

	if err := v.Write(project, artifact.Set{artifact.SectionErrors: "e", artifact.SectionPRD: "prd"}, 1); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := v.Write(project, artifact.Set{artifact.SectionAPI: "api"}, 2); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	mkdirs(t, v.Root(project), "notes")

	versions, err := v.Versions(project)
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].Number != 1 || len(versions[0].Sections) != 2 || versions[0].Sections[0] != artifact.SectionPRD {
		t.Errorf("unexpected v1: %+v", versions[0])
	}
	if versions[0].SizeBytes != 4 {
		t.Errorf("expected v1 size 4, got %d", versions[0].SizeBytes)
	}
	if versions[1].Number != 2 || versions[1].HumanSize() == "" {
		t.Errorf("unexpected v2: %+v", versions[1])
	}
}
