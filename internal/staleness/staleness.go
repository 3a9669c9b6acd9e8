// Package staleness decides whether a set of targets is out of date with
// respect to its dependencies, purely by modification time.
package staleness

import (
	"os"
	"time"

	"github.com/specialistvlad/gridmake/internal/library"
)

// OutOfDate reports whether targets must be rebuilt. Targets are out of date
// when any of them is missing, or when the newest dependency modification
// time or package install time is strictly after the oldest target
// modification time.
//
// Dependencies that do not exist contribute no timestamp. A package that no
// longer resolves makes the targets out of date.
func OutOfDate(targets, dependencies, packages []string, libs library.Resolver) bool {
	oldestTarget, ok := oldest(targets)
	if !ok {
		return true
	}

	newestDep, _ := newest(dependencies)
	for _, name := range packages {
		if libs == nil {
			return true
		}
		lib, err := libs.Resolve(name)
		if err != nil {
			return true
		}
		if lib.InstalledAt.After(newestDep) {
			newestDep = lib.InstalledAt
		}
	}

	return newestDep.After(oldestTarget)
}

// Missing returns the paths that do not exist, in input order.
func Missing(paths []string) []string {
	var out []string
	for _, p := range paths {
		if _, ok := modTime(p); !ok {
			out = append(out, p)
		}
	}
	return out
}

// oldest returns the earliest modification time among paths. It reports
// false if any path is missing.
func oldest(paths []string) (time.Time, bool) {
	var earliest time.Time
	for i, p := range paths {
		t, ok := modTime(p)
		if !ok {
			return time.Time{}, false
		}
		if i == 0 || t.Before(earliest) {
			earliest = t
		}
	}
	return earliest, true
}

// newest returns the latest modification time among the paths that exist.
// It reports false if none exist.
func newest(paths []string) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, p := range paths {
		t, ok := modTime(p)
		if !ok {
			continue
		}
		if !found || t.After(latest) {
			latest = t
		}
		found = true
	}
	return latest, found
}

func modTime(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
