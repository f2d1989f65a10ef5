package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the open-file limit below which a wide index run
// may hit EMFILE.
const MinFileDescriptors = 256

// CheckFileDescriptors reports the soft open-file limit. A low limit only
// slows large runs, so it warns rather than fails.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{Name: "file_descriptors"}

	var lim syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &lim); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to read the limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum: %d)", lim.Cur, MinFileDescriptors)
	if lim.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Details = "Run 'ulimit -n 4096' before indexing large trees"
		return result
	}
	result.Status = StatusPass
	return result
}
