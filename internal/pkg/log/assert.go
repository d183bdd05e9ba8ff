package log

import (
	"strings"

	"github.com/keboola/go-utils/pkg/wildcards"
	"github.com/stretchr/testify/assert"
	"github.com/umisama/go-regexpcache"
)

type tHelper interface {
	Helper()
}

// AssertLines compares logs captured by the DebugOutput, for tests.
// Expected lines may contain wildcards, eg. "%s" or "%d".
// Comments "// ..." and empty lines are ignored.
func AssertLines(t assert.TestingT, expected string, actual *DebugOutput) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	stripComments := regexpcache.MustCompile(`(?m)^\s*//.*$`)
	stripEmptyLines := regexpcache.MustCompile(`(^|\n)\s*\n`)

	expected = stripComments.ReplaceAllString(expected, "")
	expected = stripEmptyLines.ReplaceAllString(expected, "\n")
	str := stripEmptyLines.ReplaceAllString(actual.String(), "\n")

	return wildcards.Assert(t, strings.TrimSpace(expected), strings.TrimSpace(str))
}
