package agent

import (
	"fmt"
	"strings"
)

// Values fills "{name}" placeholders of a prompt template.
type Values map[string]any

// FormatPrompt replaces each "{name}" in template with values[name]. The
// substitution is a single literal pass: unknown placeholders stay as they
// are and braces inside substituted values are never expanded again.
func FormatPrompt(template string, values Values) string {
	if len(values) == 0 {
		return template
	}
	pairs := make([]string, 0, 2*len(values))
	for name, value := range values {
		pairs = append(pairs, "{"+name+"}", fmt.Sprint(value))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
