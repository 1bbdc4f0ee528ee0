// Package docmodel holds the structural model of a Markdown document: an
// ordered, flat list of sections derived from ATX headings. Hierarchy is
// implied by heading level comparison; a section owns every line until the
// next heading of equal or lower level.
package docmodel

import (
	"regexp"
	"strings"
)

// Kind classifies a section's structural role within a document.
type Kind int

const (
	KindUnclassified Kind = iota
	KindTitle
	KindIntroduction
	KindTableOfContents
	KindNumbered
	KindNavigation
)

// String returns the human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindTitle:
		return "title"
	case KindIntroduction:
		return "introduction"
	case KindTableOfContents:
		return "table-of-contents"
	case KindNumbered:
		return "numbered"
	case KindNavigation:
		return "navigation"
	default:
		return "unclassified"
	}
}

// Section is a heading plus the body lines it owns.
type Section struct {
	Level int    // ATX marker level, 1-6
	Text  string // heading text with markers, trailing closers, anchors and numeric labels stripped
	Raw   string // original heading line; empty for synthesized sections
	Kind  Kind
	Line  int // 1-based heading line number in the parsed body

	// Body lines owned by this section, verbatim and newline-free.
	Body []string

	// Assigned by the normalizer.
	Number string // numeric path, e.g. "2" or "2.3"
	Slug   string // unique anchor slug
}

// Flag records a non-fatal condition observed while parsing or normalizing.
type Flag struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// Structure is the parsed shape of a document body.
type Structure struct {
	// Preamble holds the lines before the first heading. With no headings at
	// all, the whole body is preamble.
	Preamble []string
	Sections []*Section
	Flags    []Flag
}

var (
	headingRe = regexp.MustCompile(`^(#{1,6})[ \t]+(.*)$`)
	anchorRe  = regexp.MustCompile(`<a\s+id="[^"]*"\s*>\s*</a>`)
	// Numeric labels carry a dot ("2." or "2.3"); a plain year-like "2024"
	// prefix is heading text, not a label. A label may also stand alone on
	// the heading line when the original text was empty.
	numberRe = regexp.MustCompile(`^\d+(\.\d+)*\.(?:[ \t]+|$)|^\d+(\.\d+)+(?:[ \t]+|$)`)
)

// ParseStructure scans body lines into a Structure. Heading-like lines inside
// fenced code blocks are body text; an unclosed fence turns the remainder of
// the file into body text and is flagged.
func ParseStructure(body []byte) *Structure {
	st := &Structure{}
	lines := splitLines(body)

	var current *Section
	fenceLen := 0 // > 0 while inside a fenced code block
	fenceLine := 0

	appendBody := func(line string) {
		if current != nil {
			current.Body = append(current.Body, line)
		} else {
			st.Preamble = append(st.Preamble, line)
		}
	}

	for i, line := range lines {
		if n := fenceMarkerLen(line); n > 0 {
			switch {
			case fenceLen == 0:
				fenceLen = n
				fenceLine = i + 1
			case n >= fenceLen && isFenceClose(line):
				fenceLen = 0
			}
			appendBody(line)
			continue
		}
		if fenceLen > 0 {
			appendBody(line)
			continue
		}

		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			appendBody(line)
			continue
		}

		current = &Section{
			Level: len(m[1]),
			Text:  CleanHeadingText(m[2]),
			Raw:   line,
			Line:  i + 1,
		}
		st.Sections = append(st.Sections, current)
	}

	if fenceLen > 0 {
		st.Flags = append(st.Flags, Flag{
			Code:    "unclosed-fence",
			Message: "fenced code block is never closed; remainder of file treated as body text",
			Line:    fenceLine,
		})
	}

	return st
}

// CleanHeadingText strips trailing ATX closers, embedded anchor tags and
// numeric labels from raw heading text, leaving the bare label.
func CleanHeadingText(text string) string {
	text = strings.TrimSpace(text)

	// Trailing ATX closer: `## Title ##`.
	if idx := strings.LastIndexFunc(text, func(r rune) bool { return r != '#' }); idx >= 0 && idx < len(text)-1 {
		if text[idx] == ' ' || text[idx] == '\t' {
			text = strings.TrimSpace(text[:idx])
		}
	} else if idx < 0 {
		// Heading text consisting only of '#' runes.
		text = ""
	}

	text = anchorRe.ReplaceAllString(text, "")
	text = numberRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// fenceMarkerLen returns the backtick run length when line opens or closes a
// fenced code block (up to three leading spaces allowed), or 0.
func fenceMarkerLen(line string) int {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return 0
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == '`' {
		n++
	}
	if n < 3 {
		return 0
	}
	return n
}

// isFenceClose reports whether the line contains only a backtick run (an
// opening fence may carry an info string, a closing fence may not).
func isFenceClose(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.Trim(trimmed, "`") == ""
}

func splitLines(body []byte) []string {
	if len(body) == 0 {
		return nil
	}
	s := string(body)
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
