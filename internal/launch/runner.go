package launch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
)

// Runner starts processes without waiting for them. Children are reaped in
// the background so a long-running daemon does not accumulate zombies.
type Runner struct {
	// Stdout and Stderr receive the children's output; nil means the
	// parent's streams.
	Stdout io.Writer
	Stderr io.Writer
	// OnExit, when set, is called after a child exits.
	OnExit func(spec ProcessSpec, pid int, err error)

	mu      sync.Mutex
	running map[int]ProcessSpec
}

// NewRunner returns a Runner writing to the parent's streams.
func NewRunner() *Runner {
	return &Runner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Spawn starts spec and returns its pid.
func (r *Runner) Spawn(spec ProcessSpec) (int, error) {
	if spec.Program == "" {
		return 0, errors.New("program is required")
	}
	cmd, err := r.startCmd(spec)
	if err != nil {
		return 0, fmt.Errorf("start %s: %w", spec.Program, err)
	}
	pid := cmd.Process.Pid

	r.mu.Lock()
	if r.running == nil {
		r.running = make(map[int]ProcessSpec)
	}
	r.running[pid] = spec
	r.mu.Unlock()

	go func() {
		err := cmd.Wait()
		r.mu.Lock()
		delete(r.running, pid)
		r.mu.Unlock()
		if r.OnExit != nil {
			r.OnExit(spec, pid, err)
		}
	}()
	return pid, nil
}

// Running returns the pids of children that have not exited yet.
func (r *Runner) Running() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.running))
	for pid := range r.running {
		out = append(out, pid)
	}
	sort.Ints(out)
	return out
}

// startCmd launches the process with the spec's environment layered on the
// parent's.
func (r *Runner) startCmd(spec ProcessSpec) (*exec.Cmd, error) {
	cmd := exec.Command(spec.Program, spec.Args...)
	cmd.Env = spec.Environ(os.Environ())
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	configureCmd(cmd)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// LookPath reports whether program can be started, returning the resolved
// path or a note describing why not.
func LookPath(program string) (resolved string, note string, ok bool) {
	if filepath.IsAbs(program) {
		info, err := os.Stat(program)
		switch {
		case err == nil && !info.IsDir():
			return program, "", true
		case err != nil:
			return program, err.Error(), false
		default:
			return program, "path is a directory", false
		}
	}
	found, err := exec.LookPath(program)
	switch {
	case err == nil:
		return found, "", true
	case errors.Is(err, exec.ErrDot):
		return program, "found relative to current dir; use absolute path", false
	default:
		return program, err.Error(), false
	}
}
