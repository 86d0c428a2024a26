// Package privilege drops root privileges before the sampler starts reading
// kernel counters. Nothing the sampler reads requires root.
package privilege

// Credentials identifies the user and group to switch to.
type Credentials struct {
	UID int
	GID int
}

// Nobody is the conventional unprivileged account on Linux.
var Nobody = Credentials{UID: 65534, GID: 65534}
