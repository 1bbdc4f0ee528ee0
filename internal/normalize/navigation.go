package normalize

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/docnorm/internal/docmodel"
)

// buildNavigation renders the footer section: previous/next links from the
// options (never content-derived) and a back-to-top anchor reference.
// navNumber is the next sequential top-level number; zero renders the heading
// unnumbered.
func buildNavigation(opts Options, navNumber int) *docmodel.Section {
	prev := "Previous"
	if opts.Previous != "" {
		prev = fmt.Sprintf("[← Previous](%s)", opts.Previous)
	}
	next := "Next"
	if opts.Next != "" {
		next = fmt.Sprintf("[Next →](%s)", opts.Next)
	}
	top := fmt.Sprintf("[Top](#%s)", topAnchor)

	format := opts.NavigationFormat
	if format == "" {
		format = DefaultNavigationFormat
	}
	line := strings.NewReplacer(
		"{previous}", prev,
		"{next}", next,
		"{top}", top,
	).Replace(format)

	sec := &docmodel.Section{
		Level: 2,
		Text:  opts.Labels.Navigation,
		Kind:  docmodel.KindNavigation,
		Body:  []string{"", line},
	}
	if navNumber > 0 {
		sec.Number = fmt.Sprintf("%d", navNumber)
	}
	return sec
}
