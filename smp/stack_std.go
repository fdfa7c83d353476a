//go:build !tinygo

package smp

import "runtime/debug"

func captureStack() []byte {
	return debug.Stack()
}
