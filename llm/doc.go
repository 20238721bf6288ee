// Package llm adapts an OpenAI-compatible chat completion service as the
// reply generator. The session supplies the ordered dialogue history; the
// adapter maps it onto chat roles and returns the model's reply text.
//
// A generation failure never reaches the socket layer: callers substitute
// the deterministic EchoReply fallback instead.
package llm
