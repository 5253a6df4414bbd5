// Package gemini provides a minimal client for the Gemini generateContent API.
//
// A request carries one inline audio part (base64 plus MIME type), one text
// prompt, an optional system instruction, and a sampling temperature. The
// response is reduced to the concatenated text of the first candidate.
//
// # Errors
//
// Non-2xx responses surface as *APIError (RateLimited reports HTTP 429 or
// RESOURCE_EXHAUSTED). Prompt blocks and safety stops surface as
// *BlockedError. An answer without candidates is returned as an empty
// Response, not an error, so callers can report it in their own terms.
//
// # Retry Behaviour
//
// None. Each GenerateContent call is exactly one HTTP request.
package gemini
