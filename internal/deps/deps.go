// Package deps locates the external binaries audiosub shells out to.
package deps

// Status reports the availability of an external binary.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}
