// Package llm provides a chat-completions client for OpenAI-compatible vision
// models (OpenRouter by default).
//
// The extraction pipeline sends one scanned card per request: a system prompt,
// the instruction text, and the image as a base64 data URL, together with a
// strict json_schema response format so the model answers with exactly the
// record fields. The client returns the raw JSON text; decoding and schema
// validation belong to the caller.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteVisionJSON: send prompt plus image, receive JSON content.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON: decode model output, tolerating code fences and prose.
//
// # Retry Behaviour
//
// Every attempt is a billable call, so the client makes a single attempt unless
// WithRetryMaxAttempts raises it. When enabled, HTTP 408/429/5xx responses and
// network timeouts are retried with exponential backoff that honours
// Retry-After. Empty content (a safety filter or refusal) is returned as
// *EmptyContentError and never retried. Context cancellation aborts retries
// immediately.
package llm
