package engine

import (
	"fmt"

	"github.com/sentinelstack/sentinel-agent/internal/models"
)

// Coarse causes produced by the always-on classifier.
const (
	CauseCPUStarvation = "CPU starvation"
	CauseIOWait        = "I/O wait"
	CauseInternalBlock = "Internal blocking / deadlock-suspected"
	CauseUndetermined  = "Undetermined"
)

// Classifier labels why a hanging process might be stuck using only ambient
// system state from the current sample. It never inspects threads and never
// fails; insufficient signal yields the undetermined cause.
type Classifier struct{}

// NewClassifier constructs a Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify derives a coarse likely cause for one hanging process.
func (c *Classifier) Classify(processName string, sample models.MonitorSample) models.FreezeClassification {
	cls := models.FreezeClassification{ProcessName: processName}

	switch {
	case sample.CPUPercent >= 85 || sample.ProcessorQueueLength >= 8:
		cls.LikelyCause = CauseCPUStarvation
		cls.Description = "The system is compute saturated; the process is likely starved of scheduler time."
		cls.Evidence = append(cls.Evidence,
			fmt.Sprintf("cpu=%.1f%%", sample.CPUPercent),
			fmt.Sprintf("run queue=%.0f", sample.ProcessorQueueLength))
	case sample.DiskQueueLength >= 4 || sample.MemoryPressureIndex > 75:
		cls.LikelyCause = CauseIOWait
		cls.Description = "Storage or paging pressure is high; the process is likely blocked on IO."
		cls.Evidence = append(cls.Evidence,
			fmt.Sprintf("disk queue=%.0f", sample.DiskQueueLength),
			fmt.Sprintf("memory pressure=%d", sample.MemoryPressureIndex))
	case sample.CPUPercent < 20 && sample.ProcessorQueueLength < 2:
		cls.LikelyCause = CauseInternalBlock
		cls.Description = "The system is idle while the process is stuck; an internal wait or deadlock is suspected."
		cls.Evidence = append(cls.Evidence, fmt.Sprintf("cpu=%.1f%%", sample.CPUPercent))
	default:
		cls.LikelyCause = CauseUndetermined
		cls.Description = "Ambient counters give no dominant signal for this hang."
	}

	return cls
}
