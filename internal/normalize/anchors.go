package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// analyzeAnchors walks the serialized body with goldmark and flags intra-
// document links whose #fragment matches no section anchor. Analysis only:
// link destinations are never rewritten.
func (p *Processor) analyzeAnchors(body []byte, slugs *slugSet, sum *ChangeSummary) {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	dangling := map[string]struct{}{}
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		link, ok := n.(*gmast.Link)
		if !ok {
			return gmast.WalkContinue, nil
		}
		dest := string(link.Destination)
		if !strings.HasPrefix(dest, "#") {
			return gmast.WalkContinue, nil
		}
		frag := strings.TrimPrefix(dest, "#")
		if _, known := slugs.seen[frag]; !known {
			dangling[frag] = struct{}{}
		}
		return gmast.WalkContinue, nil
	})

	if len(dangling) == 0 {
		return
	}
	frags := make([]string, 0, len(dangling))
	for f := range dangling {
		frags = append(frags, f)
	}
	sort.Strings(frags)
	for _, f := range frags {
		sum.AddFlag("dangling-anchor", fmt.Sprintf("link target #%s matches no section anchor", f), 0)
	}
}
