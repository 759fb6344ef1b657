package dump

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sentinelstack/sentinel-agent/internal/models"
)

// DefaultDenylist flags module name fragments with a history of causing
// hangs: shell extensions, legacy AV filter drivers and injection layers.
var DefaultDenylist = []string{
	"shellext",
	"avfilter",
	"hookdll",
	"inject",
	"legacyfilter",
}

// Analyze extracts a MiniDumpAnalysis from a previously written dump file.
// It is best-effort: a malformed or truncated file returns an error, and the
// dump itself remains valid either way.
func (c *Capture) Analyze(path string) (*models.MiniDumpAnalysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != fileHeader {
		return nil, fmt.Errorf("not a sentinel dump: %s", path)
	}

	analysis := &models.MiniDumpAnalysis{}
	section := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = line
			continue
		}

		switch section {
		case "":
			if rest, ok := strings.CutPrefix(line, "faulting-thread: "); ok {
				if tid, err := strconv.ParseInt(rest, 10, 32); err == nil {
					analysis.FaultingThreadID = int32(tid)
				}
			}
			if rest, ok := strings.CutPrefix(line, "exception: "); ok {
				analysis.ExceptionCode = rest
			}
		case "[modules]":
			analysis.LoadedModules = append(analysis.LoadedModules, line)
		case "[stacks]":
			analysis.StackTraces = append(analysis.StackTraces, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}

	denylist := c.denylist
	if len(denylist) == 0 {
		denylist = DefaultDenylist
	}
	for _, mod := range analysis.LoadedModules {
		lower := strings.ToLower(mod)
		for _, flagged := range denylist {
			if strings.Contains(lower, strings.ToLower(flagged)) {
				analysis.FlaggedModules = append(analysis.FlaggedModules, mod)
				break
			}
		}
	}
	if len(analysis.FlaggedModules) > 0 {
		analysis.FaultingModule = analysis.FlaggedModules[0]
	}

	return analysis, nil
}
