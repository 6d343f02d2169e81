package research

import (
	"slices"
	"strings"

	"github.com/leofalp/prosearch/providers/ai"
)

// DateLayout renders {current_date} in prompts, e.g. "March 05, 2025".
const DateLayout = "January 02, 2006"

// DefaultTriggerPhrases make evaluate_plan start research without asking the
// model whether the user is satisfied.
var DefaultTriggerPhrases = []string{
	"start research",
	"requirements confirmed",
	"开始研究",
	"需求确认",
}

// ResearchTopic renders the conversation for prompts. A single message is
// used as is; longer histories become "User: ..." and "Assistant: ..." lines.
// Assistant messages whose content is listed in ignore are skipped.
func ResearchTopic(messages []ai.Message, ignore ...string) string {
	if len(messages) == 1 {
		return messages[0].Content
	}
	var topic strings.Builder
	for _, message := range messages {
		switch message.Role {
		case ai.RoleUser:
			topic.WriteString("User: " + message.Content + "\n")
		case ai.RoleAssistant:
			if slices.Contains(ignore, message.Content) {
				continue
			}
			topic.WriteString("Assistant: " + message.Content + "\n")
		}
	}
	return topic.String()
}

// containsTrigger reports whether message contains one of phrases, ignoring
// case.
func containsTrigger(message string, phrases []string) bool {
	message = strings.ToLower(message)
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(message, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// contents lists the content of every message.
func contents(messages []ai.Message) []string {
	out := make([]string, len(messages))
	for i, message := range messages {
		out[i] = message.Content
	}
	return out
}
