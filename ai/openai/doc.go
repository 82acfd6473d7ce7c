// Package openai implements the ai.Embedder interface over OpenAI-compatible
// embedding APIs via langchaingo. It works against the hosted OpenAI API and
// against local OpenAI-compatible servers (Ollama, vLLM, LocalAI).
package openai
