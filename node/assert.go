package node

import "fmt"

// assert panics on a condition that can only be false if this
// package's own code is wrong, never because of anything a caller or
// the disk supplied.
func assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
