// Package analyzer sends prompts to a remote language model and returns its feedback.
//
// # Providers
//
//   - groq: OpenAI-compatible chat API at api.groq.com (default, llama3-70b-8192)
//   - openai: OpenAI chat completions
//   - gemini: Google Gemini through the GenAI SDK
//   - local: deterministic offline summary for dry runs
//
// Construct one with New and an explicit Config; credentials come from the
// caller, never from the environment:
//
//	a, err := analyzer.New(ctx, analyzer.Config{
//	    Provider: analyzer.ProviderGroq,
//	    APIKey:   key,
//	})
//	resp, err := a.Analyze(ctx, prompt.Default().Build("a.py", src))
//	fmt.Println(resp.String())
//
// # Responses
//
// Response is a tagged value: Text for providers that expose a textual
// payload, Opaque for anything else. Response.String is total; opaque values
// are formatted with %v.
//
// # Retries
//
// New wraps remote providers with WithRetry (exponential backoff, 3 attempts
// by default). Rate limits, timeouts and 5xx responses are retried; other 4xx
// responses and context cancellation are not.
package analyzer
