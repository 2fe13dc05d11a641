package transcript

import (
	"strings"
	"time"
)

const exportTimeLayout = "2006-01-02T15-04-05"

// Artifact is a named text rendering of a transcript ready to be saved.
type Artifact struct {
	Name    string
	Content string
}

// Export renders entries one per line, skipping placeholders that never
// received text. The artifact name carries the UTC export time.
func Export(entries []Entry, at time.Time) Artifact {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsPlaceholder() {
			continue
		}
		lines = append(lines, entry.Text)
	}

	return Artifact{
		Name:    "conversation-" + at.UTC().Format(exportTimeLayout) + ".txt",
		Content: strings.Join(lines, "\n"),
	}
}
