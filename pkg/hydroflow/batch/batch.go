// Package batch manages timestamped batch directories.
//
// A batch directory is named by a token of the form YYYY_M_D_H_Min_S with no
// zero padding, for example 2024_3_9_14_5_7.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
)

// Clock returns the current time. time.Now satisfies it.
type Clock func() time.Time

// Token formats t as a batch token.
func Token(t time.Time) string {
	return fmt.Sprintf("%d_%d_%d_%d_%d_%d",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// ParseToken parses a batch token in the local time zone.
func ParseToken(s string) (time.Time, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 6 {
		return time.Time{}, fmt.Errorf("batch token %q: want 6 fields, got %d", s, len(parts))
	}
	var n [6]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return time.Time{}, fmt.Errorf("batch token %q: field %d is not a number", s, i+1)
		}
		n[i] = v
	}
	t := time.Date(n[0], time.Month(n[1]), n[2], n[3], n[4], n[5], 0, time.Local)
	// time.Date normalizes out-of-range fields; a real token round-trips.
	if Token(t) != s {
		return time.Time{}, fmt.Errorf("batch token %q: not a valid date", s)
	}
	return t, nil
}

// Create makes a new batch directory under parent named by clock's current
// time. Parent is created if needed. An existing directory with the same
// token is an IOError.
func Create(parent string, clock Clock) (string, error) {
	if clock == nil {
		clock = time.Now
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", &errors.IOError{Op: "mkdir", Path: parent, Err: err}
	}
	dir := filepath.Join(parent, Token(clock()))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", &errors.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	return dir, nil
}

// Entry is one batch directory found by List.
type Entry struct {
	Day   string // "Mon Jan 02 2006"
	Time  string // "15:04:05"
	Path  string
	Stamp time.Time
}

// List returns the batch directories directly under root, oldest first.
// Names that are not batch tokens (manifests, scratch, ...) are skipped.
func List(root string) ([]Entry, error) {
	dirents, err := os.ReadDir(root)
	if err != nil {
		return nil, &errors.IOError{Op: "list batches", Path: root, Err: err}
	}

	var entries []Entry
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		stamp, err := ParseToken(d.Name())
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Day:   stamp.Format("Mon Jan 02 2006"),
			Time:  stamp.Format("15:04:05"),
			Path:  filepath.Join(root, d.Name()),
			Stamp: stamp,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Stamp.Before(entries[j].Stamp)
	})
	return entries, nil
}

// Day is the batches of one calendar day.
type Day struct {
	Label   string
	Entries []Entry
}

// GroupByDay groups entries, already ordered by List, by calendar day.
func GroupByDay(entries []Entry) []Day {
	var days []Day
	for _, e := range entries {
		if n := len(days); n > 0 && days[n-1].Label == e.Day {
			days[n-1].Entries = append(days[n-1].Entries, e)
			continue
		}
		days = append(days, Day{Label: e.Day, Entries: []Entry{e}})
	}
	return days
}
