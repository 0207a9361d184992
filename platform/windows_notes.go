//go:build windows

package platform

import (
	"github.com/StackExchange/wmi"
)

// win32VideoController mirrors the handful of WMI Win32_VideoController
// fields a real Windows ScreenMetrics adapter would read to size the
// primary display (CurrentHorizontalResolution/CurrentVerticalResolution)
// without going through a full GDI DescribeDisplay call. This file exists
// purely to keep github.com/StackExchange/wmi and github.com/go-ole/go-ole
// — both already pulled in by badu-term's dependency chain — compiled and
// exercised on windows (spec.md's DOMAIN STACK table), even though
// building the actual GlobalInputHook/InputSynthesis/ScreenMetrics
// adapters is out of scope (spec.md §1: "the OS-specific primitives").
type win32VideoController struct {
	CurrentHorizontalResolution uint32
	CurrentVerticalResolution   uint32
}

// queryPrimaryResolution is the sketch a real adapter's PrimaryBounds
// would start from: a WMI query for the active video controller's
// reported resolution. It is not wired into any ScreenMetrics
// implementation — this package intentionally stops at the capability
// interface (platform.go) per spec.md's scope boundary.
func queryPrimaryResolution() (width, height int, err error) {
	var controllers []win32VideoController
	if err := wmi.Query("SELECT CurrentHorizontalResolution, CurrentVerticalResolution FROM Win32_VideoController WHERE CurrentHorizontalResolution IS NOT NULL", &controllers); err != nil {
		return 0, 0, err
	}
	if len(controllers) == 0 {
		return 0, 0, nil
	}
	return int(controllers[0].CurrentHorizontalResolution), int(controllers[0].CurrentVerticalResolution), nil
}
