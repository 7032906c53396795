//go:build !unix

package ledger

// lockFile is a no-op where flock is unavailable; the in-process mutex still
// serializes writers within one process.
func lockFile(string) (func() error, error) {
	return func() error { return nil }, nil
}
