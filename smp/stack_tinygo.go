//go:build tinygo

package smp

// TinyGo has no stack walker on bare metal.
func captureStack() []byte { return nil }
