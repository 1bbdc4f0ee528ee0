package docmodel

import "strings"

// Labels holds the configurable heading labels for structural sections.
type Labels struct {
	Introduction    string `yaml:"introduction" json:"introduction"`
	TableOfContents string `yaml:"table_of_contents" json:"table_of_contents"`
	Navigation      string `yaml:"navigation" json:"navigation"`
}

// DefaultLabels returns the standard English structural labels.
func DefaultLabels() Labels {
	return Labels{
		Introduction:    "Introduction",
		TableOfContents: "Table of Contents",
		Navigation:      "Navigation",
	}
}

// Classify assigns a Kind to every section in the structure. It is a pure
// function over the parsed model: the first level-1 heading is the title,
// headings matching a configured label (case- and punctuation-insensitive)
// become structural sections, and every other heading below the title is a
// numbering candidate.
func Classify(st *Structure, labels Labels) {
	intro := normalizeLabel(labels.Introduction)
	toc := normalizeLabel(labels.TableOfContents)
	nav := normalizeLabel(labels.Navigation)

	titleSeen := false
	for _, sec := range st.Sections {
		if sec.Level == 1 {
			if !titleSeen {
				sec.Kind = KindTitle
				titleSeen = true
			} else {
				// Duplicate titles are resolved by the processor (demotion).
				sec.Kind = KindUnclassified
			}
			continue
		}

		switch normalizeLabel(sec.Text) {
		case intro:
			sec.Kind = KindIntroduction
		case toc:
			sec.Kind = KindTableOfContents
		case nav:
			sec.Kind = KindNavigation
		default:
			sec.Kind = KindNumbered
		}
	}
}

// normalizeLabel lowercases and strips everything but letters, digits and
// single spaces so "Table of Contents" matches "table-of-contents:".
func normalizeLabel(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
