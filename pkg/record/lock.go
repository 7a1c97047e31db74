package record

import (
	"fmt"
)

// CheckVersion rejects a mutating request whose supplied lock version does
// not match the stored one. The storage layer performs the actual
// compare-and-swap increment; this is only the pre-flight check.
func CheckVersion(stored, supplied int64) error {
	if supplied == stored {
		return nil
	}
	return NewError(KindLockConflict, fmt.Sprintf(
		"record was modified by someone else (stored version %d, supplied %d); refresh and retry",
		stored, supplied))
}
