//go:build !(unix || windows)

package platform

import (
	"fmt"
	"runtime"
)

var errUnsupported = fmt.Errorf("mmap unsupported on GOOS=%s", runtime.GOOS)

func mmapCodeSegment(code []byte) ([]byte, error) {
	return nil, errUnsupported
}

func munmapCodeSegment(code []byte) error {
	return errUnsupported
}
