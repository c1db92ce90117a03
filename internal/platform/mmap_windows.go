package platform

import (
	"reflect"
	"unsafe"

	"golang.org/x/sys/windows"
)

func mmapCodeSegment(code []byte) ([]byte, error) {
	p, err := windows.VirtualAlloc(0, uintptr(len(code)),
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		return nil, err
	}

	var mem []byte
	sh := (*reflect.SliceHeader)(unsafe.Pointer(&mem))
	sh.Data = p
	sh.Len = len(code)
	sh.Cap = len(code)
	copy(mem, code)
	return mem, nil
}

func munmapCodeSegment(code []byte) error {
	// The size must be zero with MEM_RELEASE.
	// See https://docs.microsoft.com/en-us/windows/win32/api/memoryapi/nf-memoryapi-virtualfree
	return windows.VirtualFree(uintptr(unsafe.Pointer(&code[0])), 0, windows.MEM_RELEASE)
}
