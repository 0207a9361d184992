//go:build !windows

package platform

import (
	"bytes"

	"golang.org/x/sys/unix"
)

// localKernelRelease reads the running kernel's release string via
// uname(2), the sketch a real unix GlobalInputHook/InputSynthesis adapter
// would use to branch between X11/evdev/Wayland-specific syscall paths
// (spec.md §1: "the OS-specific primitives" are out of scope; this file
// documents the syscall entry point rather than building the adapter).
// Mirrors badu-term/core's build-tag-gated engine_linux.go/engine_solaris.go
// split, generalized from termios ioctls to uname(2).
func localKernelRelease() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}
	release := uts.Release[:]
	if i := bytes.IndexByte(release, 0); i >= 0 {
		release = release[:i]
	}
	return string(release), nil
}
