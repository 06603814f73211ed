package domain

import (
	"os"
	"time"
)

// TimeStamp is a snapshot of a path and its modification time taken at creation.
// A snapshot of a missing path is absent: it is older than anything and never newer.
type TimeStamp struct {
	path    string
	modTime time.Time
	exists  bool
}

// NewTimeStamp stats path and records its modification time.
func NewTimeStamp(path string) TimeStamp {
	ts := TimeStamp{path: path}
	if info, err := os.Stat(path); err == nil {
		ts.modTime = info.ModTime()
		ts.exists = true
	}
	return ts
}

// Path returns the snapshotted path.
func (t TimeStamp) Path() string { return t.path }

// Exists reports whether the path existed when the snapshot was taken.
func (t TimeStamp) Exists() bool { return t.exists }

// ModTime returns the recorded modification time; zero when absent.
func (t TimeStamp) ModTime() time.Time { return t.modTime }

// IsOlderThanTime reports whether the snapshot predates at.
func (t TimeStamp) IsOlderThanTime(at time.Time) bool {
	if !t.exists {
		return true
	}
	return t.modTime.Before(at)
}

// IsOlderThan compares against another snapshot. An absent other is never newer.
func (t TimeStamp) IsOlderThan(other TimeStamp) bool {
	if !t.exists {
		return true
	}
	if !other.exists {
		return false
	}
	return other.modTime.After(t.modTime)
}

// IsOlderThanAny reports whether any existing path has a live mtime after the snapshot.
// Missing paths are ignored.
func (t TimeStamp) IsOlderThanAny(paths []string) bool {
	if !t.exists {
		return true
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.ModTime().After(t.modTime) {
			return true
		}
	}
	return false
}

// IsNewerThanTime reports whether the snapshot postdates at.
func (t TimeStamp) IsNewerThanTime(at time.Time) bool {
	if !t.exists {
		return false
	}
	return t.modTime.After(at)
}

// IsNewerThan compares against another snapshot. An absent other is never older.
func (t TimeStamp) IsNewerThan(other TimeStamp) bool {
	if !t.exists || !other.exists {
		return false
	}
	return t.modTime.After(other.modTime)
}

// IsNewerThanAll reports whether the snapshot postdates the live mtime of every existing path.
func (t TimeStamp) IsNewerThanAll(paths []string) bool {
	if !t.exists {
		return false
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !t.modTime.After(info.ModTime()) {
			return false
		}
	}
	return true
}

// Touch sets the path's modification time to now, creating an empty file if needed,
// and returns a fresh snapshot.
func (t TimeStamp) Touch() (TimeStamp, error) {
	now := time.Now()
	if err := os.Chtimes(t.path, now, now); err != nil {
		if !os.IsNotExist(err) {
			return t, err
		}
		f, err := os.Create(t.path)
		if err != nil {
			return t, err
		}
		if err := f.Close(); err != nil {
			return t, err
		}
	}
	return NewTimeStamp(t.path), nil
}

func (t TimeStamp) String() string {
	if !t.exists {
		return t.path + " (absent)"
	}
	return t.path + " @ " + t.modTime.Format(time.RFC3339Nano)
}

// Newest returns the snapshot of the existing path with the greatest mtime.
// ok is false when none of the paths exist.
func Newest(paths []string) (newest TimeStamp, ok bool) {
	for _, p := range paths {
		ts := NewTimeStamp(p)
		if !ts.exists {
			continue
		}
		if !ok || ts.IsNewerThan(newest) {
			newest, ok = ts, true
		}
	}
	return newest, ok
}

// Oldest returns the snapshot with the smallest mtime. If any path is missing,
// an absent snapshot of that path is returned instead, since a missing output
// makes the set as stale as it gets. An empty list yields an absent snapshot.
func Oldest(paths []string) TimeStamp {
	var oldest TimeStamp
	for i, p := range paths {
		ts := NewTimeStamp(p)
		if !ts.exists {
			return ts
		}
		if i == 0 || ts.IsOlderThan(oldest) {
			oldest = ts
		}
	}
	return oldest
}

// NewestOf picks the newer of two snapshots, preferring one that exists.
func NewestOf(a, b TimeStamp) TimeStamp {
	switch {
	case !a.exists:
		return b
	case !b.exists:
		return a
	case b.modTime.After(a.modTime):
		return b
	default:
		return a
	}
}

// Restore rebuilds a snapshot from values recorded in another process.
func Restore(path string, modTime time.Time) TimeStamp {
	if path == "" {
		return TimeStamp{}
	}
	return TimeStamp{path: path, modTime: modTime, exists: !modTime.IsZero()}
}
