package decision

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a Result as a Markdown checklist under title.
func RenderMarkdown(title string, result *Result) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s: %s\n\n", title, result.Verdict))
	sb.WriteString("| # | Criterion | Threshold | Actual | Pass |\n")
	sb.WriteString("|---|-----------|-----------|--------|------|\n")
	for i, c := range result.Criteria {
		passStr := "PASS"
		if !c.Pass {
			passStr = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, passStr))
	}
	sb.WriteString("\n")

	passed := len(result.Criteria) - len(result.Failed())
	sb.WriteString(fmt.Sprintf("Criteria: %d/%d passed\n\n", passed, len(result.Criteria)))

	for _, c := range result.Failed() {
		sb.WriteString(fmt.Sprintf("- failed: %s (actual: %s)\n", c.Name, c.Actual))
	}
	if len(result.Failed()) > 0 {
		sb.WriteString("\n")
	}
	return sb.String()
}
