package tiering

import (
	"context"
	"os"
	"os/exec"
	"strings"
)

// copyBinary is the external copy primitive invoked for every migration.
// rsync is the reference implementation the flag set below was written
// against; any rsync-compatible binary on PATH works.
var copyBinary = "rsync"

// Copier invokes the external copy primitive with the exact argument list
// the tool contract fixes, so that file ownership, ACLs, extended
// attributes, hardlinks and sparse-file layout survive the move and the
// source is removed only once the destination is confirmed in place.
type Copier struct {
	binary string
}

// NewCopier returns a Copier that shells out to copyBinary.
func NewCopier() *Copier { return &Copier{binary: copyBinary} }

// Copy moves src to dest via the external copy primitive. A source that no
// longer exists (already moved by a prior, since-crashed attempt) is
// tolerated as success.
//
// ctx is deliberately not wired into the subprocess: a copy in flight at
// shutdown must run to completion, since killing it mid-transfer can leave
// the file in both tiers. The Supervisor's shutdown grace bounds the wait.
func (c *Copier) Copy(ctx context.Context, src, dest string) error {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	args := append([]string{"-axqHAXWES", "--preallocate", "--remove-source-files"}, src, dest)
	cmd := exec.Command(c.binary, args...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return &CopyError{Src: src, Dest: dest, Output: strings.TrimSpace(string(out)), Err: err}
	}
	return nil
}

// CopyError wraps a failed copy invocation with its output for logging.
type CopyError struct {
	Src    string
	Dest   string
	Output string
	Err    error
}

func (e *CopyError) Error() string {
	return "copy " + e.Src + " -> " + e.Dest + ": " + e.Err.Error() + ": " + e.Output
}

func (e *CopyError) Unwrap() error { return e.Err }
