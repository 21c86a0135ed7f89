package treewalk

import (
	"errors"
	"fmt"
	"os"
)

// StatError reports a failed status lookup for a single entry. The walk
// treats it as a skip, never as a reason to stop.
type StatError struct {
	Path string
	Err  error
}

func (e *StatError) Error() string {
	return fmt.Sprintf("cannot stat %s: %v", e.Path, e.Err)
}

func (e *StatError) Unwrap() error { return e.Err }

// Classify determines the type of the entry at path using link-aware status
// inspection. A symbolic link is classified by the link itself, never by its
// target, so dangling links are still TypeSymlink.
func Classify(path string) (EntryType, error) {
	info, err := os.Lstat(path)
	if err != nil {
		// Strip the *os.PathError shell so the message carries the path
		// exactly once.
		var perr *os.PathError
		if errors.As(err, &perr) {
			err = perr.Err
		}
		return TypeOther, &StatError{Path: path, Err: err}
	}
	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return TypeSymlink, nil
	case mode.IsDir():
		return TypeDirectory, nil
	case mode.IsRegular():
		return TypeRegular, nil
	}
	return TypeOther, nil
}
