package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const fence = "```"

// ErrNotFound is matched by every extraction miss.
var ErrNotFound = errors.New("artifact not found")

// Reason tells why an extraction produced nothing.
type Reason string

const (
	ReasonNoBlock      Reason = "no_block"      // no candidate payload in the text
	ReasonInvalidJSON  Reason = "invalid_json"  // candidate did not parse as an object
	ReasonMissingFiles Reason = "missing_files" // object has no usable "files" mapping
	ReasonNoSections   Reason = "no_sections"   // "files" holds no recognised section
)

// MissError is returned when no payload could be recovered.
type MissError struct {
	Reason Reason
	Err    error
}

func (e *MissError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("artifact not found (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("artifact not found (%s)", e.Reason)
}

func (e *MissError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrNotFound) hold for every miss.
func (e *MissError) Is(target error) bool { return target == ErrNotFound }

// filesObjectRegex is the permissive fallback: the widest brace span that
// mentions a "files" key.
var filesObjectRegex = regexp.MustCompile(`\{[\s\S]*"files"[\s\S]*\}`)

// Extract recovers the plan sections embedded in a response.
// It first scans for a ```md or ```json fence carrying a brace-balanced JSON
// object, and falls back to a permissive match of an object containing a
// "files" key.
func Extract(response string) (Set, error) {
	miss := &MissError{Reason: ReasonNoBlock}

	if candidate := scanFencedObject(response); candidate != "" {
		set, err := parsePayload(candidate)
		if err == nil {
			return set, nil
		}
		miss = err
	}

	if match := filesObjectRegex.FindString(response); match != "" {
		set, err := parsePayload(match)
		if err == nil {
			return set, nil
		}
		if miss.Reason == ReasonNoBlock {
			miss = err
		}
	}

	return nil, miss
}

// scanFencedObject returns the accumulated JSON text of the first fenced
// block whose object is complete when its closing fence is reached. When no
// block closes cleanly, whatever was accumulated by the end of input is
// returned.
func scanFencedObject(text string) string {
	var (
		inside      bool
		jsonStarted bool
		depth       int
		buf         strings.Builder
	)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimSpace(line)

		if !inside {
			if isOpeningFence(trimmed) {
				inside = true
				jsonStarted = false
				depth = 0
				buf.Reset()
			}
			continue
		}

		if trimmed == fence {
			if !jsonStarted {
				// Prose-only block: close it so a later fence can open.
				inside = false
				continue
			}
			if depth == 0 || json.Valid([]byte(buf.String())) {
				break
			}
			continue
		}

		if !jsonStarted && strings.HasPrefix(trimmed, "{") {
			jsonStarted = true
		}
		if jsonStarted {
			buf.WriteString(line)
			buf.WriteByte('\n')
			depth += strings.Count(line, "{") - strings.Count(line, "}")
		}
	}

	return buf.String()
}

func isOpeningFence(trimmed string) bool {
	return strings.HasPrefix(trimmed, fence+"md") || strings.HasPrefix(trimmed, fence+"json")
}

// parsePayload decodes a candidate object and pulls the recognised sections
// out of its "files" mapping.
func parsePayload(candidate string) (Set, *MissError) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &doc); err != nil {
		return nil, &MissError{Reason: ReasonInvalidJSON, Err: err}
	}

	if err := validatePayload(doc); err != nil {
		return nil, &MissError{Reason: ReasonMissingFiles, Err: err}
	}
	files, ok := doc["files"].(map[string]any)
	if !ok {
		return nil, &MissError{Reason: ReasonMissingFiles}
	}

	set := make(Set, len(Sections))
	for _, sec := range Sections {
		if v, ok := files[string(sec)].(string); ok {
			set[sec] = v
		}
	}
	if len(set) == 0 {
		return nil, &MissError{Reason: ReasonNoSections}
	}

	return set, nil
}
