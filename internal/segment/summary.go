package segment

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// TextSummary describes the segment as ordered lines of text.
func (s *Segment) TextSummary() []string {
	lines := []string{s.Title()}
	if s.note != "" {
		lines = append(lines, s.note)
	}
	lines = append(lines, s.payload.describe()...)
	lines = append(lines, "Targets: "+quote(s.targets))
	if len(s.dependencies) > 0 {
		lines = append(lines, "File dependencies: "+quote(s.dependencies))
	}
	if len(s.packages) > 0 {
		lines = append(lines, "Package dependencies: "+quote(s.packages))
	}
	lines = append(lines, "Executed: "+strconv.FormatBool(s.executed))
	if s.executed {
		if d, ok := s.Duration(); ok {
			lines = append(lines, "Execution time: "+d.Round(time.Millisecond).String())
		}
		lines = append(lines, "Result: "+s.payload.describeResult(s.result))
	}
	lines = append(lines, "Environment: "+s.handle.Name())
	return lines
}

// Print writes the text summary to w, one line each.
func (s *Segment) Print(w io.Writer) error {
	for _, l := range s.TextSummary() {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func quote(items []string) string {
	q := make([]string, len(items))
	for i, it := range items {
		q[i] = "'" + it + "'"
	}
	return strings.Join(q, ", ")
}
