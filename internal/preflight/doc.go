// Package preflight provides readiness checks for the model API, the capture
// toolchain and the directories audiosub writes into.
//
// The CLI "audiosub status" command runs RunAll and renders each Result. The
// live model check is opt-in because it spends a network round trip.
package preflight
