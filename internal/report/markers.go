package report

import "strings"

// trailingDecoration is what a model may wrap a marker in: Markdown
// emphasis, code ticks and whitespace.
const trailingDecoration = "*_` \t\r\n"

// markerIndex returns the position of marker when it is the last thing in
// text apart from decoration, or -1.
func markerIndex(text, marker string) int {
	trimmed := strings.TrimRight(text, trailingDecoration)
	if !strings.HasSuffix(trimmed, marker) {
		return -1
	}
	return len(trimmed) - len(marker)
}

// IsDraft reports whether text ends with the draft marker.
func IsDraft(text string) bool {
	return markerIndex(text, DraftMarker) >= 0
}

// Finalize prepares the writer's last draft for the caller. An approved
// draft has its trailing draft marker swapped for the done marker; an
// unapproved one is returned as is.
func Finalize(draft string, approved bool) string {
	if !approved {
		return draft
	}
	i := markerIndex(draft, DraftMarker)
	if i < 0 {
		return draft
	}
	return draft[:i] + DoneMarker + draft[i+len(DraftMarker):]
}
