// Package main hosts the audiosub CLI entrypoint and command graph.
//
// The Cobra command tree turns an audio file or a microphone recording into
// an .srt file through the session controller, and exposes the mode list,
// readiness checks and configuration scaffolding. Configuration and logger
// setup live in commandContext so commands only deal with user interaction.
package main
