package native

import (
	"fmt"
	"os/user"
	"strconv"
	"strings"
)

// lookupUser resolves a container's declared user (numeric uid[:gid] or a
// username) to the uid/gid pair MaybeRunAsInit switches to. A bare numeric
// uid is used as the gid too.
func lookupUser(spec string) (uid, gid uint32, err error) {
	if n, convErr := strconv.ParseUint(spec, 10, 32); convErr == nil {
		return uint32(n), uint32(n), nil
	}
	if uidStr, gidStr, found := strings.Cut(spec, ":"); found {
		u, uErr := strconv.ParseUint(uidStr, 10, 32)
		g, gErr := strconv.ParseUint(gidStr, 10, 32)
		if uErr != nil || gErr != nil {
			return 0, 0, fmt.Errorf("invalid user spec %q, expected uid:gid", spec)
		}
		return uint32(u), uint32(g), nil
	}

	u, err := user.Lookup(spec)
	if err != nil {
		return 0, 0, err
	}
	uidN, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	gidN, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	return uint32(uidN), uint32(gidN), nil
}
