// Package ai defines how prosearch talks to language models.
//
// [Provider] is the chat-level contract implemented by adapters such as
// providers/ai/openai. The research workflow depends only on the narrower
// [Generator], a plain prompt-in, text-out call, which [NewGenerator] builds
// on top of any Provider.
package ai
