package normalize

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFolder strips combining marks after NFD decomposition, turning
// "Café" into "Cafe" before slug character mapping.
var asciiFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify derives a URL-safe anchor id from heading text: inline HTML is
// dropped, diacritics are folded to ASCII, everything outside [a-z0-9]
// collapses to single hyphens. An empty result falls back to "section".
func Slugify(text string) string {
	text = stripHTMLTags(text)

	if folded, _, err := transform.String(asciiFolder, text); err == nil {
		text = folded
	}

	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "section"
	}
	return slug
}

// slugSet hands out document-unique slugs, resolving collisions with a
// deterministic numeric suffix in first-seen order.
type slugSet struct {
	seen map[string]int
}

func newSlugSet() *slugSet {
	return &slugSet{seen: make(map[string]int)}
}

// Claim returns slug unchanged on first use, then "slug-2", "slug-3", …
// The suffixed form is itself reserved so a later heading that slugifies to
// the same text cannot collide with it.
func (s *slugSet) Claim(slug string) string {
	n := s.seen[slug]
	s.seen[slug] = n + 1
	if n == 0 {
		return slug
	}
	out := fmt.Sprintf("%s-%d", slug, n+1)
	for s.seen[out] > 0 {
		n++
		s.seen[slug] = n + 1
		out = fmt.Sprintf("%s-%d", slug, n+1)
	}
	s.seen[out] = 1
	return out
}

// stripHTMLTags removes inline markup, keeping text content only.
func stripHTMLTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	tok := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := tok.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.Write(tok.Text())
		}
	}
	return b.String()
}

// TitleFromFileName derives a human title from a file name:
// "getting-started.md" becomes "Getting Started". maxLen > 0 truncates by
// rune count.
func TitleFromFileName(name string, maxLen int) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return ' '
		}
		return r
	}, base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Document"
	}

	title := cases.Title(language.Und).String(base)
	if maxLen > 0 {
		r := []rune(title)
		if len(r) > maxLen {
			title = strings.TrimSpace(string(r[:maxLen]))
		}
	}
	return title
}
