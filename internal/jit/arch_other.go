//go:build !amd64

package jit

// Trampolines can still be compiled to bytes on this CPU, but not executed.
const archSupported = false
