//go:build linux || darwin

package privilege

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// setter is swapped out in tests.
type setter struct {
	geteuid   func() int
	setgroups func([]int) error
	setgid    func(int) error
	setuid    func(int) error
}

var sys = setter{
	geteuid:   unix.Geteuid,
	setgroups: unix.Setgroups,
	setgid:    unix.Setgid,
	setuid:    unix.Setuid,
}

// Drop switches to creds if the process runs as root. Supplementary groups
// are replaced by creds.GID and the primary group is changed before the user,
// since neither is permitted once uid is non-zero. It reports whether a
// switch happened.
func Drop(creds Credentials) (bool, error) {
	if sys.geteuid() != 0 {
		return false, nil
	}
	if err := sys.setgroups([]int{creds.GID}); err != nil {
		return false, fmt.Errorf("setgroups [%d]: %w", creds.GID, err)
	}
	if err := sys.setgid(creds.GID); err != nil {
		return false, fmt.Errorf("setgid %d: %w", creds.GID, err)
	}
	if err := sys.setuid(creds.UID); err != nil {
		return false, fmt.Errorf("setuid %d: %w", creds.UID, err)
	}
	return true, nil
}
