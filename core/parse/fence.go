package parse

import "strings"

// FenceKind is the info string of a fenced block.
type FenceKind string

const (
	FenceJSON     FenceKind = "json"
	FenceText     FenceKind = "text"
	FenceMarkdown FenceKind = "markdown"
)

const fence = "```"

// ExtractFenced returns the trimmed body of the first block opened with
// "```<kind>". Markdown blocks close at the last fence in the content so
// nested code samples survive. ok is false when no such block is open.
func ExtractFenced(content string, kind FenceKind) (body string, ok bool) {
	opener := fence + string(kind)
	start := strings.Index(content, opener)
	if start < 0 {
		return "", false
	}
	rest := content[start+len(opener):]
	// the info string must end at a line break or whitespace
	if rest != "" && !isSpace(rest[0]) {
		return "", false
	}

	var end int
	if kind == FenceMarkdown {
		end = strings.LastIndex(rest, fence)
	} else {
		end = strings.Index(rest, fence)
	}
	if end < 0 {
		// unterminated block: take everything after the opener
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}
