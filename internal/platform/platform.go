// Package platform holds the runtime-specific code needed to turn generated
// machine code into something the process can execute.
package platform

import "errors"

// MmapCodeSegment copies the code into a fresh executable region and returns
// the byte slice of the region.
func MmapCodeSegment(code []byte) ([]byte, error) {
	if len(code) == 0 {
		panic(errors.New("BUG: MmapCodeSegment with zero length"))
	}
	return mmapCodeSegment(code)
}

// MunmapCodeSegment unmaps the given memory region.
func MunmapCodeSegment(code []byte) error {
	if len(code) == 0 {
		panic(errors.New("BUG: MunmapCodeSegment with zero length"))
	}
	return munmapCodeSegment(code)
}
