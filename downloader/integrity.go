package downloader

import (
	"os"

	"parafetch/internal"
)

// VerifyIntegrity compares the final artifact's length against the probed
// total, per §4.8. No hashing is performed — that is an explicit non-goal.
func VerifyIntegrity(finalPath string, expectedTotal int64) error {
	info, err := os.Stat(finalPath)
	if err != nil {
		return internal.NewAssemblyFailedError("final artifact missing after assembly", err)
	}
	if info.Size() != expectedTotal {
		return internal.NewIntegrityMismatchError(expectedTotal, info.Size())
	}
	return nil
}
