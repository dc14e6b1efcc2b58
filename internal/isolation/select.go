package isolation

import "runtime"

// Select returns the backend appropriate for the current host: native on
// Linux, otherwise the VM-mediated backend if an emulator is available. The
// caller still must check IsAvailable before using the result, since a
// Linux host without the required namespace permissions, or a non-Linux
// host with no emulator installed, both return a backend that reports
// itself unavailable rather than nil.
func Select(native, vm Backend) Backend {
	if runtime.GOOS == "linux" && native.IsAvailable() {
		return native
	}
	return vm
}
