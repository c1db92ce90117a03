//go:build unix

package platform

import "golang.org/x/sys/unix"

// mmapCodeSegment gives read-write-exec permission to the mmap region so the
// process can both write the native code and enter it. See
// https://man7.org/linux/man-pages/man2/mmap.2.html for mmap API and flags.
func mmapCodeSegment(code []byte) ([]byte, error) {
	mmapFunc, err := unix.Mmap(
		-1,
		0,
		len(code),
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		// Anonymous as this is not an actual file, but a memory,
		// Private as this is in-process memory region.
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
	if err != nil {
		return nil, err
	}
	copy(mmapFunc, code)
	return mmapFunc, nil
}

func munmapCodeSegment(code []byte) error {
	return unix.Munmap(code)
}
