// Package session holds the subtitle workflow state machine.
//
// Transition is a pure function over (State, Event). Controller applies it to
// the active source: it guards against overlapping generations, drops results
// that arrive after the source was cleared or replaced, releases previews and
// exports finished documents.
package session
