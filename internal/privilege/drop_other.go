//go:build !linux && !darwin

package privilege

// Drop is a no-op on platforms without POSIX credentials.
func Drop(Credentials) (bool, error) {
	return false, nil
}
