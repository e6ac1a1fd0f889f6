// Package llm adapts language model APIs to agent.Reasoner.
//
// Two providers are supported:
//
//   - openai: Chat Completions through github.com/openai/openai-go,
//     default model gpt-4o-mini
//   - gemini: Gemini API through google.golang.org/genai,
//     default model gemini-2.5-flash
//
// Both run at temperature 0 unless configured otherwise and never retry a
// failed request; a failure is returned to the agent loop as is.
package llm
