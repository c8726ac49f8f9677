package diff

import (
	"strconv"
	"strings"
)

// LineType classifies a line within a diff hunk.
type LineType int

const (
	// LineContext is an unchanged line (prefix ' ').
	LineContext LineType = iota
	// LineAddition is an added line (prefix '+').
	LineAddition
	// LineDeletion is a removed line (prefix '-').
	LineDeletion
)

// Line is a single line in a diff hunk.
type Line struct {
	Type    LineType
	Content string
	// NewLine is the line number in the new file, nil for deletions.
	NewLine *int
}

// Hunk is one @@ section of a unified diff.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// ParsedDiff is the parsed form of one file's unified diff.
type ParsedDiff struct {
	Hunks []Hunk
}

// Parse parses unified diff text for a single file. File headers
// (diff --git, index, ---, +++) and "no newline" markers are tolerated and
// skipped, so both bare hunks and full git patches work.
func Parse(patch string) ParsedDiff {
	var result ParsedDiff
	if patch == "" {
		return result
	}

	var current *Hunk
	newLine := 0

	for _, line := range strings.Split(patch, "\n") {
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "diff --git"),
			strings.HasPrefix(line, "index "),
			strings.HasPrefix(line, "--- "),
			strings.HasPrefix(line, "+++ "),
			strings.HasPrefix(line, "\\ "):
			continue
		case strings.HasPrefix(line, "@@"):
			if current != nil {
				result.Hunks = append(result.Hunks, *current)
			}
			hunk := parseHunkHeader(line)
			current = &hunk
			newLine = hunk.NewStart
			continue
		}

		if current == nil {
			continue
		}

		var parsed Line
		switch line[0] {
		case '+':
			parsed = Line{Type: LineAddition, Content: line[1:], NewLine: intPtr(newLine)}
			newLine++
		case '-':
			parsed = Line{Type: LineDeletion, Content: line[1:]}
		case ' ':
			parsed = Line{Type: LineContext, Content: line[1:], NewLine: intPtr(newLine)}
			newLine++
		default:
			// Some platforms emit unprefixed context lines.
			parsed = Line{Type: LineContext, Content: line, NewLine: intPtr(newLine)}
			newLine++
		}
		current.Lines = append(current.Lines, parsed)
	}

	if current != nil {
		result.Hunks = append(result.Hunks, *current)
	}
	return result
}

// Stats returns the number of added and deleted lines across all hunks.
func (pd ParsedDiff) Stats() (additions, deletions int) {
	for _, hunk := range pd.Hunks {
		for _, line := range hunk.Lines {
			switch line.Type {
			case LineAddition:
				additions++
			case LineDeletion:
				deletions++
			}
		}
	}
	return additions, deletions
}

// ContainsNewLine reports whether the given new-side line number appears in
// the diff. Line comments anchored to lines outside the diff are rejected
// by every platform, so callers check this before posting.
func (pd ParsedDiff) ContainsNewLine(newLineNumber int) bool {
	if newLineNumber <= 0 {
		return false
	}
	for _, hunk := range pd.Hunks {
		if newLineNumber < hunk.NewStart || newLineNumber >= hunk.NewStart+hunk.NewLines {
			continue
		}
		for _, line := range hunk.Lines {
			if line.NewLine != nil && *line.NewLine == newLineNumber {
				return true
			}
		}
	}
	return false
}

// Stats is a convenience wrapper parsing a patch and returning its counts.
func Stats(patch string) (additions, deletions int) {
	return Parse(patch).Stats()
}

// parseHunkHeader parses "@@ -10,7 +10,8 @@ optional context".
func parseHunkHeader(line string) Hunk {
	var hunk Hunk
	parts := strings.Split(line, "@@")
	if len(parts) < 2 {
		return hunk
	}

	for _, field := range strings.Fields(strings.TrimSpace(parts[1])) {
		switch {
		case strings.HasPrefix(field, "-"):
			hunk.OldStart, hunk.OldLines = parseRange(strings.TrimPrefix(field, "-"))
		case strings.HasPrefix(field, "+"):
			hunk.NewStart, hunk.NewLines = parseRange(strings.TrimPrefix(field, "+"))
		}
	}
	return hunk
}

// parseRange parses "start,count" or "start" (count defaults to 1).
func parseRange(s string) (start, count int) {
	if idx := strings.Index(s, ","); idx >= 0 {
		start, _ = strconv.Atoi(s[:idx])
		count, _ = strconv.Atoi(s[idx+1:])
		return start, count
	}
	start, _ = strconv.Atoi(s)
	return start, 1
}

func intPtr(n int) *int {
	return &n
}
