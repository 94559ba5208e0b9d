package sync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportRendersOnlyNonEmptyGroups(t *testing.T) {
	report := NewReport()
	report.Append(GroupCreatedProducts, "%q", "Red Shoes")
	report.Append(GroupErrors, "item %s: boom", "abc")

	out := report.String()

	assert.Contains(t, out, "New products created:")
	assert.Contains(t, out, "\"Red Shoes\"")
	assert.Contains(t, out, "Errors:")
	assert.NotContains(t, out, "Items updated:")
}

func TestReportUnknownGroupRegisteredOnTheFly(t *testing.T) {
	report := NewReport()
	report.Append("custom", "entry")

	assert.Equal(t, []string{"entry"}, report.Entries("custom"))
	assert.Contains(t, report.String(), "custom:")
}

func TestReportGroupOrderIsStable(t *testing.T) {
	report := NewReport()
	report.Append(GroupErrors, "late group entry")
	report.Append(GroupCreatedProducts, "early group entry")

	out := report.String()
	assert.Less(t, strings.Index(out, "New products created:"), strings.Index(out, "Errors:"))
}
