// Package audio captures the clip that subtitles are generated from.
//
// SelectFile loads a file from disk and sniffs its MIME type. Recorder
// records from the microphone through a Device: chunks flow through a bounded
// channel into a single collector and are concatenated in arrival order when
// the Session stops. Only one Session is active per process, and a file lock
// keeps other audiosub processes off the same microphone. FFmpegDevice is the
// production Device; UdevWatcher aborts a session when the sound card goes
// away.
package audio
