package models

import "time"

// Thread run states reported by the process inspector.
const (
	ThreadStateRunning = "Running"
	ThreadStateWaiting = "Waiting"
	ThreadStateStopped = "Stopped"
)

// Canonical wait reasons tabulated during deep investigation.
const (
	WaitReasonExecutive     = "Executive"
	WaitReasonFreePage      = "FreePage"
	WaitReasonPageIn        = "PageIn"
	WaitReasonUserRequest   = "UserRequest"
	WaitReasonVirtualMemory = "VirtualMemory"
	WaitReasonEventPair     = "EventPair"
	WaitReasonSuspended     = "Suspended"
	WaitReasonUnknown       = "Unknown"
)

// ThreadInfo describes one live thread of an investigated process.
type ThreadInfo struct {
	TID        int32
	State      string
	WaitReason string
}

// FreezeClassification is the cheap, always-on label attached to every
// hanging process, derived from ambient system state only.
type FreezeClassification struct {
	ProcessName string
	LikelyCause string
	Description string
	Evidence    []string
}

// MiniDumpAnalysis is the best-effort post-hoc extraction from a captured
// dump file. Every field may be empty without invalidating the dump.
type MiniDumpAnalysis struct {
	FaultingModule   string
	ExceptionCode    string
	FaultingThreadID int32
	LoadedModules    []string
	StackTraces      []string
	FlaggedModules   []string
}

// FreezeReport is the result of one deep investigation. It is assembled in a
// single call, owned by the caller, and never exposed partially built.
type FreezeReport struct {
	ReportID           string
	ProcessName        string
	ProcessID          int32
	FreezeDuration     time.Duration
	TotalThreads       int
	RunningThreads     int
	WaitReasonCounts   map[string]int
	DominantWaitReason string
	LikelyRootCause    string
	MiniDumpPath       string
	MiniDumpAnalysis   *MiniDumpAnalysis
	CreatedAt          time.Time
}
