package jit

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/jitcall/jitcall/internal/platform"
)

// Engine compiles trampolines and owns the executable mappings backing them.
// Engines are safe for concurrent use; each compilation runs on its own
// assembler and buffer.
type Engine struct {
	mux         sync.Mutex
	trampolines []*Trampoline
}

// NewEngine returns an empty Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compile builds the trampoline for desc, maps it into executable memory and
// returns the callable handle. The mapping stays valid until Close is called
// on the trampoline or the engine.
func (e *Engine) Compile(desc *CallDescriptor) (*Trampoline, error) {
	if !archSupported {
		return nil, fmt.Errorf("trampolines generate amd64 machine code and cannot run on GOARCH=%s", runtime.GOARCH)
	}

	code, err := CompileTrampoline(desc)
	if err != nil {
		return nil, err
	}
	executable, err := platform.MmapCodeSegment(code)
	if err != nil {
		return nil, err
	}

	t := &Trampoline{codeSegment: executable}
	e.mux.Lock()
	e.trampolines = append(e.trampolines, t)
	e.mux.Unlock()
	return t, nil
}

// Close releases every mapping the engine produced. Trampoline addresses
// obtained from this engine must not be called afterwards.
func (e *Engine) Close() (err error) {
	e.mux.Lock()
	defer e.mux.Unlock()
	for _, t := range e.trampolines {
		if cerr := t.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	e.trampolines = nil
	return
}

// Trampoline is a generated function mapped into executable memory. The code
// reads only its own stack frame and fixed immediates, so one trampoline may
// be invoked from any number of threads concurrently.
type Trampoline struct {
	mux         sync.Mutex
	codeSegment []byte
}

// Addr returns the entry address of the generated function, to be cast to the
// target signature by the caller's FFI mechanism.
func (t *Trampoline) Addr() uintptr {
	t.mux.Lock()
	defer t.mux.Unlock()
	if t.codeSegment == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(&t.codeSegment[0]))
}

// Close unmaps the trampoline's code. Closing twice is a no-op.
func (t *Trampoline) Close() error {
	t.mux.Lock()
	defer t.mux.Unlock()
	if t.codeSegment == nil {
		return nil
	}
	code := t.codeSegment
	t.codeSegment = nil
	return platform.MunmapCodeSegment(code)
}
