package jit

// Generated trampolines are amd64 machine code, executable on this CPU.
const archSupported = true
