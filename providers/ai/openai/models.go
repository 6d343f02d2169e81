package openai

import (
	"strings"

	"github.com/leofalp/prosearch/providers/ai"
)

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	TopP        *float32      `json:"top_p,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	// DashScope extension understood by Qwen3 hybrid models.
	EnableThinking *bool `json:"enable_thinking,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int                 `json:"index"`
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatResponseMessage struct {
	Role             string `json:"role"`
	Content          string `json:"content"`
	Refusal          string `json:"refusal,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func requestToChatCompletion(request ai.ChatRequest) chatCompletionRequest {
	messages := make([]chatMessage, 0, len(request.Messages)+1)
	if request.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: string(ai.RoleSystem), Content: request.SystemPrompt})
	}
	for _, message := range request.Messages {
		messages = append(messages, chatMessage{Role: string(message.Role), Content: message.Content})
	}

	out := chatCompletionRequest{Model: request.Model, Messages: messages}
	if config := request.GenerationConfig; config != nil {
		if config.Temperature > 0 {
			out.Temperature = &config.Temperature
		}
		if config.TopP > 0 {
			out.TopP = &config.TopP
		}
		if config.MaxTokens > 0 {
			out.MaxTokens = &config.MaxTokens
		}
		if config.DisableThinking {
			disabled := false
			out.EnableThinking = &disabled
		}
	}
	return out
}

func chatCompletionToGeneric(response chatCompletionResponse) *ai.ChatResponse {
	out := &ai.ChatResponse{ID: response.ID, Model: response.Model}
	if response.Usage != nil {
		out.Usage = &ai.Usage{
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
			TotalTokens:      response.Usage.TotalTokens,
		}
	}
	if len(response.Choices) == 0 {
		return out
	}

	choice := response.Choices[0]
	out.FinishReason = choice.FinishReason
	out.Refusal = choice.Message.Refusal
	out.Reasoning = choice.Message.ReasoningContent
	out.Content = choice.Message.Content
	if reasoning := extractThinking(out.Content); reasoning != "" {
		out.Reasoning = reasoning
		out.Content = stripThinking(out.Content)
	}
	return out
}

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// extractThinking returns the text inside a <think> block. The closing tag is
// required; a missing opening tag means the block starts at the beginning.
func extractThinking(content string) string {
	end := strings.Index(content, thinkClose)
	if end < 0 {
		return ""
	}
	start := strings.Index(content, thinkOpen)
	if start < 0 || start > end {
		start = 0
	} else {
		start += len(thinkOpen)
	}
	return strings.TrimSpace(content[start:end])
}

func stripThinking(content string) string {
	end := strings.Index(content, thinkClose)
	if end < 0 {
		return content
	}
	start := strings.Index(content, thinkOpen)
	if start < 0 || start > end {
		start = 0
	}
	return strings.TrimSpace(content[:start] + content[end+len(thinkClose):])
}
