// Package artifact recovers the structured plan payload embedded in an
// assistant response.
package artifact

import "strings"

// Section names one markdown document of a generated plan.
type Section string

const (
	SectionPRD          Section = "PRD"
	SectionArchitecture Section = "ARCHITECTURE"
	SectionStack        Section = "STACK"
	SectionTasks        Section = "TASKS"
	SectionStructure    Section = "STRUCTURE"
	SectionSchema       Section = "SCHEMA"
	SectionConventions  Section = "CONVENTIONS"
	SectionEnv          Section = "ENV"
	SectionAPI          Section = "API"
	SectionUI           Section = "UI"
	SectionErrors       Section = "ERRORS"
)

// Sections lists every recognised section in write order.
var Sections = []Section{
	SectionPRD,
	SectionArchitecture,
	SectionStack,
	SectionTasks,
	SectionStructure,
	SectionSchema,
	SectionConventions,
	SectionEnv,
	SectionAPI,
	SectionUI,
	SectionErrors,
}

// Filename returns the markdown file the section is written to.
func (s Section) Filename() string {
	return strings.ToLower(string(s)) + ".md"
}

// Set maps sections to their raw markdown text.
type Set map[Section]string

// Present returns the sections contained in the set, in write order.
func (s Set) Present() []Section {
	present := make([]Section, 0, len(s))
	for _, sec := range Sections {
		if _, ok := s[sec]; ok {
			present = append(present, sec)
		}
	}
	return present
}
