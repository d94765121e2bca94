// Package testcase defines the scripts the engine runs: an entry URL, an
// ordered list of steps and the assertions checked once the steps are done.
package testcase
