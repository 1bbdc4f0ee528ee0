package normalize

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/docnorm/internal/docmodel"
)

// buildTOC renders a fresh table-of-contents section for the given numbered
// sections. The block is always regenerated in full, never patched. Returns
// nil when fewer than opts.TocMinSections numbered sections exist.
func buildTOC(sections []*docmodel.Section, opts Options) *docmodel.Section {
	var entries []*docmodel.Section
	total := 0
	for _, sec := range sections {
		if sec.Kind != docmodel.KindNumbered {
			continue
		}
		total++
		if sec.Level <= opts.TocDepth {
			entries = append(entries, sec)
		}
	}
	if total < opts.TocMinSections {
		return nil
	}

	body := []string{""}
	if opts.TocCollapsible {
		body = append(body,
			"<details>",
			fmt.Sprintf("<summary>%s</summary>", opts.Labels.TableOfContents),
			"")
	}
	for _, sec := range entries {
		depth := strings.Count(sec.Number, ".")
		if sec.Number == "" && sec.Level > 2 {
			depth = sec.Level - 2
		}
		indent := strings.Repeat("  ", depth)
		body = append(body, fmt.Sprintf("%s- [%s](#%s)",
			indent, headingLabel(sec), sec.Slug))
	}
	if opts.TocCollapsible {
		body = append(body, "", "</details>")
	}
	body = append(body, "")

	return &docmodel.Section{
		Level: 2,
		Text:  opts.Labels.TableOfContents,
		Kind:  docmodel.KindTableOfContents,
		Body:  body,
	}
}
