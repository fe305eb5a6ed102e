package assert

import "github.com/apogee-mp/apogee/aerror"

// IsTrue panics unless ok holds. Reserved for internal invariants whose
// violation means a programming error, never for validating external input.
func IsTrue(ok bool, message string, args ...interface{}) {
	if !ok {
		panic(aerror.New(message, args...))
	}
}
