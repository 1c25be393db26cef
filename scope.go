package slack2md

import (
	"fmt"
	"time"

	"github.com/s2md/slack2md/internal/client"
	"github.com/s2md/slack2md/internal/structures"
)

type scopeMode int

const (
	scopeAll scopeMode = iota
	scopeLastN
	scopeRange
)

// Scope selects which part of a conversation to export.  The zero value
// exports everything.
type Scope struct {
	mode   scopeMode
	n      int
	oldest time.Time
	latest time.Time
}

// LastN scopes the export to the most recent n messages.
func LastN(n int) Scope {
	return Scope{mode: scopeLastN, n: n}
}

// Between scopes the export to messages within [oldest, latest],
// inclusive.
func Between(oldest, latest time.Time) Scope {
	return Scope{mode: scopeRange, oldest: oldest, latest: latest}
}

// All scopes the export to the entire conversation history.
func All() Scope {
	return Scope{mode: scopeAll}
}

// Label returns the scope tag echoed into frontmatter: "last_N",
// "date_range" or "all".
func (s Scope) Label() string {
	switch s.mode {
	case scopeLastN:
		return fmt.Sprintf("last_%d", s.n)
	case scopeRange:
		return "date_range"
	default:
		return "all"
	}
}

// params translates the scope into history fetch parameters.
func (s Scope) params() client.HistoryParams {
	switch s.mode {
	case scopeLastN:
		return client.HistoryParams{Limit: s.n}
	case scopeRange:
		var p client.HistoryParams
		if !s.oldest.IsZero() {
			p.Oldest = structures.FormatSlackTS(s.oldest)
		}
		if !s.latest.IsZero() {
			p.Latest = structures.FormatSlackTS(s.latest)
		}
		return p
	default:
		return client.HistoryParams{}
	}
}
