// Package addr models byte addresses in the target image and half-open
// ranges over them.
package addr

import "fmt"

// Undefined is the maximum Address value, meaning "no address". Arithmetic on
// an undefined address always yields Undefined.
const Undefined Address = ^Address(0)

// Address is a possibly-undefined unsigned byte address in the target image.
type Address uint64

// Defined reports whether a is a concrete address.
func (a Address) Defined() bool {
	return a != Undefined
}

// Add returns a+delta, or Undefined if a is undefined.
func (a Address) Add(delta uint64) Address {
	if !a.Defined() {
		return Undefined
	}
	return a + Address(delta)
}

// Less orders two defined addresses; undefined addresses sort last.
func (a Address) Less(b Address) bool {
	if a == b {
		return false
	}
	if !a.Defined() {
		return false
	}
	if !b.Defined() {
		return true
	}
	return a < b
}

func (a Address) String() string {
	if !a.Defined() {
		return "<undef>"
	}
	return fmt.Sprintf("0x%x", uint64(a))
}
