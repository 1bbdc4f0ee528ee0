package normalize

import "git.home.luguber.info/inful/docnorm/internal/docmodel"

// Action describes what happened to a derived block during a pass.
type Action string

const (
	ActionNone     Action = "none"
	ActionInserted Action = "inserted"
	ActionReplaced Action = "replaced"
	ActionMoved    Action = "moved"
	ActionRemoved  Action = "removed"
)

// ChangeSummary is the structured report of a single processing pass. It is
// JSON-serializable for machine-readable output and event payloads.
type ChangeSummary struct {
	Changed bool `json:"changed"`

	SectionsAdded int `json:"sections_added,omitempty"`
	Renumbered    int `json:"renumbered,omitempty"`

	Title        Action `json:"title"`
	Introduction Action `json:"introduction"`
	TOC          Action `json:"toc"`
	Navigation   Action `json:"navigation"`

	Flags []docmodel.Flag `json:"flags,omitempty"`
}

// NewChangeSummary returns a summary with all actions at their zero semantics.
func NewChangeSummary() ChangeSummary {
	return ChangeSummary{
		Title:        ActionNone,
		Introduction: ActionNone,
		TOC:          ActionNone,
		Navigation:   ActionNone,
	}
}

// AddFlag records a non-fatal condition with an optional line number.
func (s *ChangeSummary) AddFlag(code, message string, line int) {
	s.Flags = append(s.Flags, docmodel.Flag{Code: code, Message: message, Line: line})
}

// Empty reports whether the pass found a fully conformant document with
// nothing to flag.
func (s *ChangeSummary) Empty() bool {
	return !s.Changed && len(s.Flags) == 0
}

// HasFlag reports whether a flag with the given code was recorded.
func (s *ChangeSummary) HasFlag(code string) bool {
	for _, f := range s.Flags {
		if f.Code == code {
			return true
		}
	}
	return false
}
