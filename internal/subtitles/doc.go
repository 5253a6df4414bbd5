// Package subtitles builds model requests for audio sources and turns the raw
// model text into SRT documents.
//
// BuildPrompt composes the numbered instruction for one of the four modes,
// EncodeAudio prepares the inline payload, and Normalize strips markdown fences
// and trims leading prose up to the first cue anchor. Generator ties these
// together and maps transport failures onto the services error markers.
package subtitles
