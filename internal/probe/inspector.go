package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/sentinelstack/sentinel-agent/internal/models"
)

// Inspector answers responsiveness and thread questions from procfs.
type Inspector struct{}

// NewInspector returns a procfs-backed ProcessInspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// Responsive treats a process as unresponsive while it sits in
// uninterruptible sleep, is stopped, or has become a zombie. A process that
// no longer exists returns an error so hang tracking can drop it.
func (i *Inspector) Responsive(ctx context.Context, pid int32) (bool, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return false, fmt.Errorf("process %d: %w", pid, err)
	}
	statuses, err := p.StatusWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("process %d status: %w", pid, err)
	}
	for _, st := range statuses {
		switch st {
		case process.Blocked, process.Stop, process.Zombie:
			return false, nil
		}
	}
	return true, nil
}

// Threads enumerates the live threads of pid with run state and wait reason.
func (i *Inspector) Threads(ctx context.Context, pid int32) ([]models.ThreadInfo, error) {
	taskDir := fmt.Sprintf("/proc/%d/task", pid)
	entries, err := os.ReadDir(taskDir)
	if err != nil {
		return nil, fmt.Errorf("enumerate threads of %d: %w", pid, err)
	}

	threads := make([]models.ThreadInfo, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tid, err := strconv.ParseInt(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		state, ok := readThreadState(taskDir, e.Name())
		if !ok {
			continue // thread exited mid-enumeration
		}
		info := models.ThreadInfo{TID: int32(tid)}
		switch state {
		case 'R':
			info.State = models.ThreadStateRunning
		case 'T', 't':
			info.State = models.ThreadStateStopped
			info.WaitReason = models.WaitReasonSuspended
		default:
			info.State = models.ThreadStateWaiting
			info.WaitReason = waitReasonFor(state, readWchan(taskDir, e.Name()))
		}
		threads = append(threads, info)
	}

	sort.Slice(threads, func(a, b int) bool { return threads[a].TID < threads[b].TID })
	return threads, nil
}

// readThreadState extracts the single-character state field from
// /proc/<pid>/task/<tid>/stat. The comm field may contain spaces and
// parentheses, so the state is located after the last ')'.
func readThreadState(taskDir, tid string) (byte, bool) {
	data, err := os.ReadFile(filepath.Join(taskDir, tid, "stat"))
	if err != nil {
		return 0, false
	}
	s := string(data)
	idx := strings.LastIndexByte(s, ')')
	if idx < 0 || idx+2 >= len(s) {
		return 0, false
	}
	return s[idx+2], true
}

func readWchan(taskDir, tid string) string {
	data, err := os.ReadFile(filepath.Join(taskDir, tid, "wchan"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// waitReasonFor maps a kernel wait channel symbol onto the canonical wait
// reason vocabulary used by the investigator's rule table.
func waitReasonFor(state byte, wchan string) string {
	w := strings.ToLower(wchan)
	switch {
	case containsAny(w, "futex", "mutex", "rwsem", "lock"):
		return models.WaitReasonExecutive
	case containsAny(w, "folio", "page_wait", "swap", "filemap_fault"):
		return models.WaitReasonPageIn
	case containsAny(w, "alloc", "reclaim", "throttle_direct", "oom"):
		return models.WaitReasonFreePage
	case containsAny(w, "mmap", "vm_", "brk", "khugepaged", "madvise"):
		return models.WaitReasonVirtualMemory
	case containsAny(w, "poll", "select", "epoll", "wait4", "waitid", "pipe", "read", "recv", "accept", "tty", "pause", "sigtimedwait", "hrtimer_nanosleep"):
		return models.WaitReasonUserRequest
	case containsAny(w, "eventfd", "signalfd"):
		return models.WaitReasonEventPair
	}
	if state == 'D' {
		// Uninterruptible sleep with an unrecognised channel is most
		// often page or block IO.
		return models.WaitReasonPageIn
	}
	if wchan == "" || wchan == "0" {
		return models.WaitReasonUserRequest
	}
	return models.WaitReasonUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
