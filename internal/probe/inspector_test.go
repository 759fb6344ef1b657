package probe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sentinelstack/sentinel-agent/internal/models"
)

func TestWaitReasonMapping(t *testing.T) {
	cases := []struct {
		state byte
		wchan string
		want  string
	}{
		{'S', "futex_wait", models.WaitReasonExecutive},
		{'S', "rwsem_down_write_slowpath", models.WaitReasonExecutive},
		{'D', "folio_wait_bit", models.WaitReasonPageIn},
		{'D', "swap_readpage", models.WaitReasonPageIn},
		{'D', "throttle_direct_reclaim", models.WaitReasonFreePage},
		{'S', "mmap_read_lock_killable", models.WaitReasonExecutive}, // lock outranks mmap
		{'S', "vm_mmap_pgoff", models.WaitReasonVirtualMemory},
		{'S', "do_epoll_wait", models.WaitReasonUserRequest},
		{'S', "hrtimer_nanosleep", models.WaitReasonUserRequest},
		{'S', "eventfd_write", models.WaitReasonEventPair},
		{'D', "mystery_kernel_symbol", models.WaitReasonPageIn}, // D-state fallback
		{'S', "", models.WaitReasonUserRequest},
		{'S', "0", models.WaitReasonUserRequest},
		{'S', "mystery_kernel_symbol", models.WaitReasonUnknown},
	}
	for _, tc := range cases {
		if got := waitReasonFor(tc.state, tc.wchan); got != tc.want {
			t.Errorf("waitReasonFor(%c, %q) = %q, want %q", tc.state, tc.wchan, got, tc.want)
		}
	}
}

func TestReadThreadState(t *testing.T) {
	dir := t.TempDir()
	tid := "1234"
	if err := os.MkdirAll(filepath.Join(dir, tid), 0o755); err != nil {
		t.Fatal(err)
	}

	// comm fields with spaces and parentheses must not confuse parsing
	stat := "1234 (tricky (name) here) D 1 1234 1234 0 -1 4194560 0 0 0 0\n"
	if err := os.WriteFile(filepath.Join(dir, tid, "stat"), []byte(stat), 0o644); err != nil {
		t.Fatal(err)
	}

	state, ok := readThreadState(dir, tid)
	if !ok {
		t.Fatal("state not parsed")
	}
	if state != 'D' {
		t.Fatalf("state = %c, want D", state)
	}
}

func TestReadThreadStateGone(t *testing.T) {
	if _, ok := readThreadState(t.TempDir(), "999"); ok {
		t.Fatal("expected parse failure for a vanished thread")
	}
}

func TestThreadsOnSelf(t *testing.T) {
	inspector := NewInspector()
	threads, err := inspector.Threads(context.Background(), int32(os.Getpid()))
	if err != nil {
		t.Fatalf("threads: %v", err)
	}
	if len(threads) == 0 {
		t.Fatal("expected at least one thread")
	}
	for i := 1; i < len(threads); i++ {
		if threads[i].TID < threads[i-1].TID {
			t.Fatal("threads not sorted by TID")
		}
	}
}

func TestResponsiveOnSelf(t *testing.T) {
	inspector := NewInspector()
	ok, err := inspector.Responsive(context.Background(), int32(os.Getpid()))
	if err != nil {
		t.Fatalf("responsive: %v", err)
	}
	if !ok {
		t.Fatal("running test process reported unresponsive")
	}
}

func TestResponsiveMissingProcess(t *testing.T) {
	inspector := NewInspector()
	if _, err := inspector.Responsive(context.Background(), 1<<30); err == nil {
		t.Fatal("expected error for missing process")
	}
}
