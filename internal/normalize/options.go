package normalize

import "git.home.luguber.info/inful/docnorm/internal/docmodel"

// Options is the immutable per-call configuration for a Process run. The
// zero value is not useful; start from DefaultOptions.
type Options struct {
	RequireIntroduction bool
	RequireTOC          bool
	RequireNavigation   bool
	TocCollapsible      bool
	SectionNumbering    bool

	// TocMinSections is the minimum count of numbered sections before a TOC
	// is emitted. Below it, an existing TOC is removed.
	TocMinSections int
	// TocDepth is the deepest heading level that appears in the TOC.
	TocDepth int
	// NumberingStart is the label given to the first numbered top-level
	// section ("1" is conventionally reserved for the introduction).
	NumberingStart int

	// NavigationFormat is a template with {previous}, {next} and {top}
	// placeholders for the footer line.
	NavigationFormat string

	// MinContentLength skips documents whose body is shorter than this.
	MinContentLength int
	// MaxTitleLength truncates synthesized titles; over-long existing titles
	// are only flagged.
	MaxTitleLength int

	Labels docmodel.Labels

	// Force rewrites conformant documents too (summary reporting only; the
	// transform itself is always total).
	Force bool

	// SourceName is the file name used to synthesize a title when the
	// document has no level-1 heading.
	SourceName string

	// Previous and Next are navigation link targets supplied by the caller,
	// never inferred from content. Empty means the edge is rendered as plain
	// text.
	Previous string
	Next     string
}

// DefaultNavigationFormat is the standard three-part footer layout.
const DefaultNavigationFormat = "{previous} | {next} | {top}"

// DefaultOptions returns the standard normalization policy.
func DefaultOptions() Options {
	return Options{
		RequireIntroduction: true,
		RequireTOC:          true,
		RequireNavigation:   true,
		TocCollapsible:      true,
		SectionNumbering:    true,
		TocMinSections:      2,
		TocDepth:            3,
		NumberingStart:      2,
		NavigationFormat:    DefaultNavigationFormat,
		MaxTitleLength:      80,
		Labels:              docmodel.DefaultLabels(),
	}
}
