package docmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStructure_BasicSections(t *testing.T) {
	body := []byte("# Title\nintro text\n## Getting Started\nHi\n### Install\nsteps\n## Advanced\nBye\n")

	st := ParseStructure(body)
	require.Empty(t, st.Preamble)
	require.Len(t, st.Sections, 4)

	require.Equal(t, 1, st.Sections[0].Level)
	require.Equal(t, "Title", st.Sections[0].Text)
	require.Equal(t, []string{"intro text"}, st.Sections[0].Body)

	require.Equal(t, 2, st.Sections[1].Level)
	require.Equal(t, "Getting Started", st.Sections[1].Text)
	require.Equal(t, []string{"Hi"}, st.Sections[1].Body)

	require.Equal(t, 3, st.Sections[2].Level)
	require.Equal(t, "Install", st.Sections[2].Text)

	require.Equal(t, "Advanced", st.Sections[3].Text)
	require.Equal(t, []string{"Bye"}, st.Sections[3].Body)
}

func TestParseStructure_NoHeadings_AllPreamble(t *testing.T) {
	st := ParseStructure([]byte("just text\nmore text\n"))
	require.Empty(t, st.Sections)
	require.Equal(t, []string{"just text", "more text"}, st.Preamble)
}

func TestParseStructure_EmptyInput(t *testing.T) {
	st := ParseStructure(nil)
	require.Empty(t, st.Sections)
	require.Empty(t, st.Preamble)
	require.Empty(t, st.Flags)
}

func TestParseStructure_HeadingInsideFenceIsBody(t *testing.T) {
	body := []byte("# Title\n```markdown\n## Not A Heading\n```\n## Real\n")

	st := ParseStructure(body)
	require.Len(t, st.Sections, 2)
	require.Equal(t, "Title", st.Sections[0].Text)
	require.Equal(t, []string{"```markdown", "## Not A Heading", "```"}, st.Sections[0].Body)
	require.Equal(t, "Real", st.Sections[1].Text)
}

func TestParseStructure_LongerFenceHoldsShorterSample(t *testing.T) {
	body := []byte("# Title\n````markdown\n```\n## Sample\n```\n````\n## Real\n")

	st := ParseStructure(body)
	require.Len(t, st.Sections, 2)
	require.Equal(t, "Real", st.Sections[1].Text)
	require.Contains(t, st.Sections[0].Body, "## Sample")
}

func TestParseStructure_UnclosedFence_FlagsAndSwallowsRest(t *testing.T) {
	body := []byte("# Title\n```\n## Swallowed\nmore\n")

	st := ParseStructure(body)
	require.Len(t, st.Sections, 1)
	require.Len(t, st.Flags, 1)
	require.Equal(t, "unclosed-fence", st.Flags[0].Code)
	require.Equal(t, 2, st.Flags[0].Line)
	require.Equal(t, []string{"```", "## Swallowed", "more"}, st.Sections[0].Body)
}

func TestParseStructure_SetextUnderlineIsNotHeading(t *testing.T) {
	body := []byte("Title\n=====\nbody\n")

	st := ParseStructure(body)
	require.Empty(t, st.Sections)
	require.Len(t, st.Preamble, 3)
}

func TestParseStructure_HashWithoutSpaceIsNotHeading(t *testing.T) {
	st := ParseStructure([]byte("#hashtag\n"))
	require.Empty(t, st.Sections)
}

func TestCleanHeadingText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Getting Started", "Getting Started"},
		{"Getting Started ##", "Getting Started"},
		{"2. Getting Started", "Getting Started"},
		{"2.3 Deep Dive", "Deep Dive"},
		{"2.3.1 Deeper", "Deeper"},
		{"2024 Review", "2024 Review"}, // year, not a label
		{`My Doc <a id="top"></a>`, "My Doc"},
		{"C#", "C#"},
		{"###", ""},
		{"2.", ""},    // bare top-level label
		{"2.3", ""},   // bare nested label
		{"2024", "2024"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, CleanHeadingText(tc.in), "input %q", tc.in)
	}
}

func TestClassify_DefaultLabels(t *testing.T) {
	body := []byte("# Title\n## Introduction\nhi\n## Table of Contents\n- x\n## 2. Getting Started\n## 4. Navigation\n")
	st := ParseStructure(body)
	Classify(st, DefaultLabels())

	require.Equal(t, KindTitle, st.Sections[0].Kind)
	require.Equal(t, KindIntroduction, st.Sections[1].Kind)
	require.Equal(t, KindTableOfContents, st.Sections[2].Kind)
	require.Equal(t, KindNumbered, st.Sections[3].Kind)
	require.Equal(t, KindNavigation, st.Sections[4].Kind)
}

func TestClassify_IsCaseAndPunctuationInsensitive(t *testing.T) {
	body := []byte("# T\n## INTRODUCTION!\n## table-of-contents\n")
	st := ParseStructure(body)
	Classify(st, DefaultLabels())

	require.Equal(t, KindIntroduction, st.Sections[1].Kind)
	require.Equal(t, KindTableOfContents, st.Sections[2].Kind)
}

func TestClassify_SecondLevelOneHeadingIsUnclassified(t *testing.T) {
	body := []byte("# First\n# Second\n")
	st := ParseStructure(body)
	Classify(st, DefaultLabels())

	require.Equal(t, KindTitle, st.Sections[0].Kind)
	require.Equal(t, KindUnclassified, st.Sections[1].Kind)
}
