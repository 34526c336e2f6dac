package mover

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	gklog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// ProgressFunc is invoked after every path, successful or not.
type ProgressFunc func(done, total int)

// PreRemoveFunc runs before a directory is removed. If it fails, the
// directory is reported as failed and left in place.
type PreRemoveFunc func(ctx context.Context, path string) error

// Result is the outcome for a single directory.
type Result struct {
	Source string
	Dest   string
	Err    error
}

// Report is the final tally of one destructive batch. A single bad path
// never aborts the batch; it shows up here instead.
type Report struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Results   []Result
}

func (r *Report) String() string {
	return fmt.Sprintf("%d of %d succeeded, %d failed, %d skipped", r.Succeeded, r.Total, r.Failed, r.Skipped)
}

type Mover struct {
	log gklog.Logger
}

func New(log gklog.Logger) *Mover {
	return &Mover{log: gklog.With(log, "service", "mover")}
}

// Move relocates each directory into a single flat destination, renaming on
// collision with an incrementing numeric suffix. The destination is
// validated up front: an unusable destination is fatal before any
// destructive work starts.
func (m *Mover) Move(ctx context.Context, paths []string, destRoot string, progress ProgressFunc) (*Report, error) {
	if progress == nil {
		progress = func(int, int) {}
	}

	if err := ensureWritableDir(destRoot); err != nil {
		return nil, errors.Wrap(err, "mover validate destination")
	}

	rep := &Report{Total: len(paths)}

	for i, src := range paths {
		if _, err := os.Stat(src); err != nil {
			level.Warn(m.log).Log("msg", fmt.Sprintf("path not found (skipping): %s", src))
			rep.Skipped++
			rep.Results = append(rep.Results, Result{Source: src, Err: err})
			progress(i+1, len(paths))
			continue
		}

		dest := uniqueDest(destRoot, filepath.Base(filepath.Clean(src)))
		level.Info(m.log).Log("msg", fmt.Sprintf("moving: %s -> %s", src, dest))

		if err := movePath(src, dest); err != nil {
			level.Error(m.log).Log("msg", fmt.Sprintf("move failed for %s: %s", src, err))
			rep.Failed++
			rep.Results = append(rep.Results, Result{Source: src, Dest: dest, Err: err})
			progress(i+1, len(paths))
			continue
		}

		rep.Succeeded++
		rep.Results = append(rep.Results, Result{Source: src, Dest: dest})
		progress(i+1, len(paths))
	}

	level.Info(m.log).Log("msg", "move complete: "+rep.String())
	return rep, nil
}

// Delete permanently removes each directory, invoking pre (when set) first.
func (m *Mover) Delete(ctx context.Context, paths []string, pre PreRemoveFunc, progress ProgressFunc) *Report {
	if progress == nil {
		progress = func(int, int) {}
	}

	rep := &Report{Total: len(paths)}

	for i, src := range paths {
		if _, err := os.Stat(src); err != nil {
			level.Warn(m.log).Log("msg", fmt.Sprintf("path not found (skipping): %s", src))
			rep.Skipped++
			rep.Results = append(rep.Results, Result{Source: src, Err: err})
			progress(i+1, len(paths))
			continue
		}

		if pre != nil {
			if err := pre(ctx, src); err != nil {
				level.Error(m.log).Log("msg", fmt.Sprintf("pre-remove hook failed for %s: %s", src, err))
				rep.Failed++
				rep.Results = append(rep.Results, Result{Source: src, Err: err})
				progress(i+1, len(paths))
				continue
			}
		}

		level.Info(m.log).Log("msg", "removing: "+src)
		if err := os.RemoveAll(src); err != nil {
			level.Error(m.log).Log("msg", fmt.Sprintf("remove failed for %s: %s", src, err))
			rep.Failed++
			rep.Results = append(rep.Results, Result{Source: src, Err: err})
			progress(i+1, len(paths))
			continue
		}

		rep.Succeeded++
		rep.Results = append(rep.Results, Result{Source: src})
		progress(i+1, len(paths))
	}

	level.Info(m.log).Log("msg", "delete complete: "+rep.String())
	return rep
}

// movePath renames src into dest. Render volumes and archive volumes are
// usually separate mounts, so a cross-device rename falls back to copying the
// tree and removing the source.
func movePath(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	if !isCrossDeviceError(err) {
		return err
	}

	return copyThenRemove(src, dest)
}

func isCrossDeviceError(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

// copyThenRemove copies the whole directory, then removes the source. A
// failed copy drops the partial destination and leaves the source untouched.
func copyThenRemove(src, dest string) error {
	if err := copyDir(src, dest); err != nil {
		_ = os.RemoveAll(dest)
		return err
	}

	return os.RemoveAll(src)
}

func copyDir(src, dest string) error {
	return filepath.Walk(src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}

		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dest string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// uniqueDest returns destRoot/base, or destRoot/base_1, base_2, ... if the
// name is already taken.
func uniqueDest(destRoot, base string) string {
	candidate := filepath.Join(destRoot, base)
	if _, err := os.Stat(candidate); err != nil {
		return candidate
	}

	for i := 1; ; i++ {
		candidate := filepath.Join(destRoot, fmt.Sprintf("%s_%d", base, i))
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

func ensureWritableDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.Errorf("%s is not a directory", dir)
	}

	probe, err := os.CreateTemp(dir, ".framesweep-*")
	if err != nil {
		return errors.Errorf("%s is not writable", dir)
	}
	probe.Close()
	return os.Remove(probe.Name())
}
