package session

import (
	"fmt"
	"regexp"
)

var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// maxSocketPath is the smallest sun_path among supported platforms (macOS),
// minus the terminating NUL.
const maxSocketPath = 103

// ValidateName checks that name conforms to session naming rules and that
// the session socket fits in a sockaddr_un under the current base directory.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid session name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	if p := SocketPath(name); len(p) > maxSocketPath {
		return fmt.Errorf("session %q: socket path %s is %d bytes, over the %d byte limit; set %s to a shorter directory",
			name, p, len(p), maxSocketPath, HomeEnv)
	}
	return nil
}
