package session

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const localtimePath = "/etc/localtime"

// LocalTimezone returns the IANA name of the process location. TZ wins, then
// the zoneinfo target of /etc/localtime. Anything unresolvable is UTC.
func LocalTimezone() string {
	return resolveTimezone(os.LookupEnv, localtimePath)
}

func resolveTimezone(lookupEnv func(string) (string, bool), localtime string) string {
	if tz, ok := lookupEnv("TZ"); ok {
		if name := validZone(strings.TrimPrefix(tz, ":")); name != "" {
			return name
		}
		return "UTC"
	}

	if target, err := filepath.EvalSymlinks(localtime); err == nil {
		if name := zoneFromPath(target); name != "" {
			return name
		}
	}
	// EvalSymlinks fails when the zoneinfo file is missing; the link text still names the zone
	if target, err := os.Readlink(localtime); err == nil {
		if name := zoneFromPath(target); name != "" {
			return name
		}
	}
	return "UTC"
}

func zoneFromPath(path string) string {
	_, name, ok := strings.Cut(filepath.ToSlash(path), "zoneinfo/")
	if !ok {
		return ""
	}
	// posix/ and right/ are alternate builds of the same database
	name = strings.TrimPrefix(strings.TrimPrefix(name, "posix/"), "right/")
	return validZone(name)
}

func validZone(name string) string {
	if name == "" || name == "Local" {
		return ""
	}
	if _, err := time.LoadLocation(name); err != nil {
		return ""
	}
	return name
}
