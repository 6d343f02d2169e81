// Package openai implements ai.Provider against any OpenAI-compatible
// chat completions endpoint (OpenAI, DashScope compatible mode, vLLM, ...).
//
// [New] reads OPENAI_API_KEY and OPENAI_API_BASE_URL from the environment.
package openai
