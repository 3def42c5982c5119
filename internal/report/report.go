package report

import (
	"fmt"
	"io"
	"strings"

	"notionsync/internal/syncer"
)

// MaxFailures caps how many row failures the banner lists.
const MaxFailures = 5

// Write renders the end-of-run banner.
func Write(w io.Writer, summary syncer.Summary) error {
	rule := strings.Repeat("=", 50)
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nSYNC COMPLETE\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Created: %d new records\n", summary.Created)
	fmt.Fprintf(&b, "Updated: %d existing records\n", summary.Updated)
	fmt.Fprintf(&b, "Errors:  %d failed records\n", summary.Errors)

	if len(summary.Failures) > 0 {
		b.WriteString("\nError Details:\n")
		for i, f := range summary.Failures {
			if i == MaxFailures {
				fmt.Fprintf(&b, "  ... and %d more\n", len(summary.Failures)-MaxFailures)
				break
			}
			uid := f.UID
			if uid == "" {
				uid = "unknown"
			}
			fmt.Fprintf(&b, "  - UID %s: %s\n", uid, f.Error)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
