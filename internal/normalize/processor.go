// Package normalize rewrites a Markdown document to the standard layout:
// anchored title, introduction, collapsible table of contents, numbered
// section hierarchy and a navigation footer. The transform is pure and
// deterministic, and a second pass over its own output is byte-identical.
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/docnorm/internal/docmodel"
	docerrors "git.home.luguber.info/inful/docnorm/internal/errors"
	"git.home.luguber.info/inful/docnorm/internal/frontmatter"
)

// topAnchor is the anchor id embedded in the title heading; the navigation
// footer's back-to-top link targets it.
const topAnchor = "top"

const (
	placeholderMarker = "<!-- docnorm:placeholder -->"
	placeholderText   = "_This introduction is a generated placeholder; replace it with a short overview._"
)

// Processor applies the normalization pipeline to document bytes. It carries
// no state between calls and is safe for concurrent use.
type Processor struct{}

// NewProcessor returns a ready Processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// Process parses content, normalizes its structure per opts and serializes it
// back. Body lines of kept sections are preserved byte-for-byte; only heading
// lines and the generated blocks are rewritten. A summary of structural
// changes and flagged ambiguities accompanies the output.
func (p *Processor) Process(content []byte, opts Options) ([]byte, ChangeSummary, error) {
	sum := NewChangeSummary()

	fmRaw, body, hadFM, style, err := frontmatter.Split(content)
	if err != nil {
		if !errors.Is(err, frontmatter.ErrMissingClosingDelimiter) {
			return nil, sum, docerrors.Wrap(err, docerrors.CategoryProcess, docerrors.SeverityError,
				"failed to split frontmatter")
		}
		// Degrade: treat the whole document as body text.
		sum.AddFlag("frontmatter-unclosed",
			"frontmatter opening delimiter without closing delimiter; treated as body text", 1)
		fmRaw, body, hadFM = nil, content, false
	}
	nl := style.Newline
	if nl == "" {
		nl = "\n"
	}

	if opts.MinContentLength > 0 && len(bytes.TrimSpace(body)) < opts.MinContentLength {
		sum.AddFlag("content-too-short",
			fmt.Sprintf("body shorter than %d bytes; skipped", opts.MinContentLength), 0)
		return content, sum, nil
	}

	st := docmodel.ParseStructure(body)
	sum.Flags = append(sum.Flags, st.Flags...)
	if sum.HasFlag("unclosed-fence") {
		// Anything appended after an unclosed fence would be swallowed by the
		// fence on the next pass; leave the document alone.
		return content, sum, nil
	}
	docmodel.Classify(st, opts.Labels)

	title, intro, rest := p.arrange(st, opts, &sum)

	// Stage 5: numbering and slugs over the canonical order so far.
	navNumber := 0
	if opts.SectionNumbering {
		navNumber = assignNumbers(rest, opts.NumberingStart, &sum)
	}

	slugs := newSlugSet()
	title.Slug = slugs.Claim(topAnchor)
	if intro != nil {
		intro.Slug = slugs.Claim(Slugify(intro.Text))
	}
	for _, sec := range rest {
		sec.Slug = slugs.Claim(Slugify(headingLabel(sec)))
	}

	ordered := make([]*docmodel.Section, 0, len(rest)+4)
	ordered = append(ordered, title)
	if intro != nil {
		ordered = append(ordered, intro)
	}

	// Stage 6: table of contents, fully regenerated each pass.
	if opts.RequireTOC {
		if toc := buildTOC(rest, opts); toc != nil {
			toc.Slug = slugs.Claim(Slugify(toc.Text))
			ordered = append(ordered, toc)
			if sum.TOC == ActionNone {
				sum.TOC = ActionInserted
				sum.SectionsAdded++
			}
		} else if sum.TOC == ActionReplaced || sum.TOC == ActionMoved {
			sum.TOC = ActionRemoved
		}
	}

	ordered = append(ordered, rest...)

	// Stage 7: navigation footer, always last.
	if opts.RequireNavigation {
		nav := buildNavigation(opts, navNumber)
		nav.Slug = slugs.Claim(Slugify(headingLabel(nav)))
		ordered = append(ordered, nav)
		if sum.Navigation == ActionNone {
			sum.Navigation = ActionInserted
			sum.SectionsAdded++
		}
	}

	bodyOut := p.serialize(ordered, opts, nl, &sum)
	out := frontmatter.Join(fmRaw, bodyOut, hadFM, style)

	p.analyzeAnchors(bodyOut, slugs, &sum)

	sum.Changed = !bytes.Equal(out, content)
	if !sum.Changed && !opts.Force {
		// Conformant document: report a clean pass, keep only flags.
		flags := sum.Flags
		sum = NewChangeSummary()
		sum.Flags = flags
	}

	return out, sum, nil
}

// arrange resolves title, introduction and the ordered remainder from the
// classified structure, applying the deterministic ambiguity policies:
// duplicate titles demote, duplicate structural sections become numbered,
// preamble text relocates under the title.
func (p *Processor) arrange(st *docmodel.Structure, opts Options, sum *ChangeSummary) (title, intro *docmodel.Section, rest []*docmodel.Section) {
	// Final-position bookkeeping: the introduction moved when any kept
	// section precedes it in the output where none did in the input.
	titleBeforeIntro := false
	restBeforeIntro := 0

	for i, sec := range st.Sections {
		switch {
		case sec.Kind == docmodel.KindTitle:
			title = sec
		case sec.Level == 1:
			// Duplicate title: demote one level and number it.
			sec.Level = 2
			sec.Kind = docmodel.KindNumbered
			sum.AddFlag("duplicate-title", "multiple level-1 headings; demoted to section", sec.Line)
			rest = append(rest, sec)
		case sec.Kind == docmodel.KindIntroduction:
			if intro == nil {
				intro = sec
				titleBeforeIntro = title != nil
				restBeforeIntro = len(rest)
			} else {
				sec.Kind = docmodel.KindNumbered
				sum.AddFlag("duplicate-introduction", "multiple introduction sections; extra demoted to numbered", sec.Line)
				rest = append(rest, sec)
			}
		case sec.Kind == docmodel.KindTableOfContents && opts.RequireTOC:
			// Dropped here; the block is rebuilt from current structure.
			switch sum.TOC {
			case ActionNone:
				sum.TOC = ActionReplaced
				if !tocInCanonicalPosition(st.Sections, i) {
					sum.TOC = ActionMoved
					sum.AddFlag("toc-moved", "table of contents was not immediately after the introduction", sec.Line)
				}
			default:
				sum.AddFlag("duplicate-toc", "extra table of contents block removed", sec.Line)
			}
		case sec.Kind == docmodel.KindNavigation && opts.RequireNavigation:
			// Dropped here; rebuilt as the final section.
			switch sum.Navigation {
			case ActionNone:
				sum.Navigation = ActionReplaced
				if i != len(st.Sections)-1 {
					sum.Navigation = ActionMoved
				}
			default:
				sum.AddFlag("duplicate-navigation", "extra navigation section removed", sec.Line)
			}
		default:
			rest = append(rest, sec)
		}
	}

	if intro != nil && (restBeforeIntro > 0 || (title != nil && !titleBeforeIntro)) {
		sum.Introduction = ActionMoved
	}

	if title == nil {
		title = &docmodel.Section{
			Level: 1,
			Kind:  docmodel.KindTitle,
			Text:  TitleFromFileName(opts.SourceName, opts.MaxTitleLength),
		}
		sum.Title = ActionInserted
		sum.SectionsAdded++
	} else if opts.MaxTitleLength > 0 && len([]rune(title.Text)) > opts.MaxTitleLength {
		sum.AddFlag("title-too-long",
			fmt.Sprintf("title exceeds %d characters", opts.MaxTitleLength), title.Line)
	}

	if len(st.Preamble) > 0 {
		block := padBlock(st.Preamble)
		title.Body = append(block, title.Body...)
		if sum.Title != ActionInserted {
			sum.AddFlag("preamble-relocated", "body text before the title moved below it", 1)
		}
	}
	if sum.Title == ActionInserted && len(title.Body) == 0 {
		title.Body = []string{""}
	}

	if intro == nil && opts.RequireIntroduction {
		intro = &docmodel.Section{
			Level: 2,
			Kind:  docmodel.KindIntroduction,
			Text:  opts.Labels.Introduction,
			Body:  []string{"", placeholderMarker, placeholderText, ""},
		}
		sum.Introduction = ActionInserted
		sum.SectionsAdded++
	}

	return title, intro, rest
}

// serialize renders the final section order back to body bytes. Kept body
// lines are emitted verbatim; the output carries exactly one trailing newline.
func (p *Processor) serialize(ordered []*docmodel.Section, opts Options, nl string, sum *ChangeSummary) []byte {
	var lines []string
	for _, sec := range ordered {
		heading := renderHeading(sec, opts)
		if sec.Raw != "" && heading != sec.Raw {
			sum.Renumbered++
		}
		lines = append(lines, heading)
		lines = append(lines, sec.Body...)
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	return []byte(strings.Join(lines, nl) + nl)
}

// renderHeading produces the canonical heading line for a section.
func renderHeading(sec *docmodel.Section, opts Options) string {
	switch sec.Kind {
	case docmodel.KindTitle:
		return fmt.Sprintf(`# %s <a id="%s"></a>`, sec.Text, topAnchor)
	case docmodel.KindIntroduction:
		return "## " + opts.Labels.Introduction
	case docmodel.KindTableOfContents:
		return "## " + opts.Labels.TableOfContents
	default:
		return strings.Repeat("#", sec.Level) + " " + headingLabel(sec)
	}
}

// headingLabel is the heading text with its numeric label, when assigned.
func headingLabel(sec *docmodel.Section) string {
	if sec.Number == "" {
		return sec.Text
	}
	if sec.Text == "" {
		// No trailing space after the label so the line reparses cleanly.
		return numberLabel(sec.Number)
	}
	return numberLabel(sec.Number) + " " + sec.Text
}

// padBlock guarantees a blank line on both sides of a kept text block.
func padBlock(block []string) []string {
	if len(block) == 0 {
		return []string{""}
	}
	out := make([]string, 0, len(block)+2)
	if strings.TrimSpace(block[0]) != "" {
		out = append(out, "")
	}
	out = append(out, block...)
	if strings.TrimSpace(block[len(block)-1]) != "" {
		out = append(out, "")
	}
	return out
}

// tocInCanonicalPosition reports whether the TOC at index i directly follows
// the introduction (or the title when no introduction exists).
func tocInCanonicalPosition(sections []*docmodel.Section, i int) bool {
	if i == 0 {
		return false
	}
	prev := sections[i-1]
	return prev.Kind == docmodel.KindIntroduction || prev.Kind == docmodel.KindTitle
}
