// Package diff computes character-level differences between two content
// snapshots and turns them into change-log records.
package diff

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Span is one run of text that was added, removed or kept between two
// contents. A span with neither flag set is present on both sides.
type Span struct {
	Value   string `json:"value"`
	Added   bool   `json:"added"`
	Removed bool   `json:"removed"`
}

// Unchanged reports whether the span appears on both sides.
func (s Span) Unchanged() bool { return !s.Added && !s.Removed }

// Compute returns the ordered spans that turn previous into next.
//
// The diff runs over runes without a time budget, so the same inputs always
// produce the same span boundaries. Identical non-empty inputs yield a single
// unchanged span; two empty inputs yield none. When either side is not valid
// UTF-8 the diff runs over bytes instead, so every byte survives the round
// trip.
func Compute(previous, next string) []Span {
	if utf8.ValidString(previous) && utf8.ValidString(next) {
		return compute(previous, next, nil)
	}
	return compute(widen(previous), widen(next), narrow)
}

func compute(previous, next string, conv func(string) string) []Span {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMain(previous, next, false)
	diffs = dmp.DiffCleanupMerge(diffs)

	spans := make([]Span, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		text := d.Text
		if conv != nil {
			text = conv(text)
		}
		spans = append(spans, Span{
			Value:   text,
			Added:   d.Type == diffmatchpatch.DiffInsert,
			Removed: d.Type == diffmatchpatch.DiffDelete,
		})
	}
	return spans
}

// widen maps every byte of s to the rune with the same value.
func widen(s string) string {
	rs := make([]rune, len(s))
	for i := 0; i < len(s); i++ {
		rs[i] = rune(s[i])
	}
	return string(rs)
}

// narrow reverses widen.
func narrow(s string) string {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		b = append(b, byte(r))
	}
	return string(b)
}

// Previous rebuilds the left-hand content from spans.
func Previous(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		if !s.Added {
			b.WriteString(s.Value)
		}
	}
	return b.String()
}

// Next rebuilds the right-hand content from spans.
func Next(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		if !s.Removed {
			b.WriteString(s.Value)
		}
	}
	return b.String()
}

// Stats counts runes per span kind.
type Stats struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

// Identical reports whether the spans describe two equal contents.
func (s Stats) Identical() bool { return s.Added == 0 && s.Removed == 0 }

// Summarize counts the runes each kind of span contributes.
func Summarize(spans []Span) Stats {
	var st Stats
	for _, s := range spans {
		n := utf8.RuneCountInString(s.Value)
		switch {
		case s.Added:
			st.Added += n
		case s.Removed:
			st.Removed += n
		default:
			st.Unchanged += n
		}
	}
	return st
}
