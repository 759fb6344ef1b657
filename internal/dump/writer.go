// Package dump writes process snapshot files for offline freeze analysis and
// performs best-effort extraction of their contents.
package dump

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/sentinelstack/sentinel-agent/internal/models"
	"github.com/sentinelstack/sentinel-agent/internal/probe"
	"github.com/sentinelstack/sentinel-agent/internal/utils"
)

const fileHeader = "SENTINEL-DUMP 1"

// Capture writes process snapshots into a dedicated directory. A snapshot
// records thread states, open handles, loaded modules and, where the kernel
// allows, per-thread stacks. One capture is a single attempt with no retry.
type Capture struct {
	dir        string
	inspector  probe.ProcessInspector
	denylist   []string
	privileged bool
	now        func() time.Time
}

// NewCapture creates the capture facility rooted at dir. denylist holds
// module name fragments flagged during analysis. privileged enables the
// collection paths that need elevated rights, currently kernel stacks.
func NewCapture(dir string, inspector probe.ProcessInspector, denylist []string, privileged bool) (*Capture, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, utils.NewOpError("dump.init", "create dump directory", err)
	}
	return &Capture{
		dir:        dir,
		inspector:  inspector,
		denylist:   denylist,
		privileged: privileged,
		now:        time.Now,
	}, nil
}

// CreateDump writes a snapshot of pid and returns the file path. Any failure
// (insufficient privilege, process gone) returns an error and no file.
func (c *Capture) CreateDump(ctx context.Context, processName string, pid int32) (string, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return "", utils.NewOpError("dump.create", fmt.Sprintf("target process %d", pid), err)
	}

	ts := c.now().UTC().Format("20060102_150405")
	path := filepath.Join(c.dir, fmt.Sprintf("freeze_%s_%d_%s.dmp", sanitizeName(processName), pid, ts))

	var b strings.Builder
	fmt.Fprintln(&b, fileHeader)
	fmt.Fprintf(&b, "process: %s\n", processName)
	fmt.Fprintf(&b, "pid: %d\n", pid)
	fmt.Fprintf(&b, "captured: %s\n", c.now().UTC().Format(time.RFC3339))

	threads, err := c.inspector.Threads(ctx, pid)
	if err != nil {
		return "", utils.NewOpError("dump.create", fmt.Sprintf("enumerate threads of %d", pid), err)
	}
	if faulting := faultingThread(threads); faulting != 0 {
		fmt.Fprintf(&b, "faulting-thread: %d\n", faulting)
	}

	fmt.Fprintln(&b, "[modules]")
	for _, mod := range loadedModules(ctx, p) {
		fmt.Fprintln(&b, mod)
	}

	fmt.Fprintln(&b, "[threads]")
	for _, t := range threads {
		fmt.Fprintf(&b, "%d %s %s\n", t.TID, t.State, t.WaitReason)
	}

	fmt.Fprintln(&b, "[handles]")
	for _, h := range openHandles(ctx, p) {
		fmt.Fprintln(&b, h)
	}

	fmt.Fprintln(&b, "[stacks]")
	if c.privileged {
		for _, t := range threads {
			if frames := kernelStack(pid, t.TID); frames != "" {
				fmt.Fprintf(&b, "%d: %s\n", t.TID, frames)
			}
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o640); err != nil {
		return "", utils.NewOpError("dump.create", "write dump file", err)
	}
	return path, nil
}

// faultingThread picks the first stopped or page-waiting thread, the closest
// analogue of a faulting thread available without a debugger attach.
func faultingThread(threads []models.ThreadInfo) int32 {
	for _, t := range threads {
		if t.State == models.ThreadStateStopped || t.WaitReason == models.WaitReasonPageIn {
			return t.TID
		}
	}
	return 0
}

func loadedModules(ctx context.Context, p *process.Process) []string {
	maps, err := p.MemoryMapsWithContext(ctx, false)
	if err != nil || maps == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var modules []string
	for _, m := range *maps {
		path := strings.TrimSpace(m.Path)
		if path == "" || strings.HasPrefix(path, "[") {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		modules = append(modules, path)
	}
	return modules
}

func openHandles(ctx context.Context, p *process.Process) []string {
	files, err := p.OpenFilesWithContext(ctx)
	if err != nil {
		return nil
	}
	handles := make([]string, 0, len(files))
	for _, f := range files {
		handles = append(handles, fmt.Sprintf("%d %s", f.Fd, f.Path))
	}
	return handles
}

// kernelStack reads the thread's kernel stack if the kernel exposes it.
// Usually requires elevated privileges; empty on any failure.
func kernelStack(pid, tid int32) string {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/task/%d/stack", pid, tid))
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	frames := make([]string, 0, len(lines))
	for _, line := range lines {
		frames = append(frames, strings.TrimSpace(line))
	}
	return strings.Join(frames, ";")
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
