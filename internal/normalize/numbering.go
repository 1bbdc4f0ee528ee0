package normalize

import (
	"strconv"
	"strings"

	"git.home.luguber.info/inful/docnorm/internal/docmodel"
)

// assignNumbers walks numbered sections in document order and assigns dotted
// numeric paths. Depth follows structural nesting: a level jump deeper than
// one step is clamped to the next available depth and flagged. It returns the
// next free top-level number, which the navigation section takes.
func assignNumbers(sections []*docmodel.Section, start int, sum *ChangeSummary) int {
	counters := make([]int, 0, 4)

	for _, sec := range sections {
		if sec.Kind != docmodel.KindNumbered {
			continue
		}

		depth := sec.Level - 1
		if depth < 1 {
			depth = 1
		}
		if depth > len(counters)+1 {
			sum.AddFlag("numbering-jump",
				"heading level jumps more than one step below its parent", sec.Line)
			depth = len(counters) + 1
		}

		counters = counters[:min(depth, len(counters))]
		if len(counters) < depth {
			if depth == 1 {
				counters = append(counters, start-1)
			} else {
				counters = append(counters, 0)
			}
		}
		counters[depth-1]++

		sec.Number = joinPath(counters)
	}

	if len(counters) > 0 {
		return counters[0] + 1
	}
	return start
}

// numberLabel renders the numeric label as it appears in a heading: top-level
// labels carry a trailing dot ("2."), nested ones do not ("2.3").
func numberLabel(number string) string {
	if number == "" {
		return ""
	}
	if !strings.Contains(number, ".") {
		return number + "."
	}
	return number
}

func joinPath(counters []int) string {
	parts := make([]string, len(counters))
	for i, c := range counters {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}
