package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertSegmentRan checks the log output to confirm that the segment with the
// given id ran to completion.
func AssertSegmentRan(t *testing.T, result *HarnessResult, id int) {
	t.Helper()
	require.True(t, segmentLogged(result, id, "Segment finished."),
		"expected segment %d to have run, logs:\n%s", id, result.LogOutput)
}

// AssertSegmentSkipped checks the log output to confirm that the segment with
// the given id was found up to date.
func AssertSegmentSkipped(t *testing.T, result *HarnessResult, id int) {
	t.Helper()
	require.True(t, segmentLogged(result, id, "Targets are up to date, skipping."),
		"expected segment %d to have been skipped, logs:\n%s", id, result.LogOutput)
}

func segmentLogged(result *HarnessResult, id int, msg string) bool {
	attr := fmt.Sprintf("segment=%d ", id)
	for _, line := range strings.Split(result.LogOutput, "\n") {
		if strings.Contains(line, msg) && strings.Contains(line, attr) {
			return true
		}
	}
	return false
}
