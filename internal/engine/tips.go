package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sentinelstack/sentinel-agent/internal/models"
)

// TipEngine resolves remediation tips for monitor events from a YAML tip
// pack. A nil engine is valid and resolves nothing.
type TipEngine struct {
	rules  []TipRule
	logger *slog.Logger
}

// TipRule maps matching events to one remediation tip.
type TipRule struct {
	ID    string   `yaml:"id"`
	Match TipMatch `yaml:"match"`
	Tip   string   `yaml:"tip"`
}

// TipMatch defines optional attributes for tip matching.
type TipMatch struct {
	EventType           string   `yaml:"event_type"`
	Severity            string   `yaml:"severity"`
	DescriptionContains []string `yaml:"description_contains"`
}

// TipPackFile is the YAML root structure.
type TipPackFile struct {
	Tips []TipRule `yaml:"tips"`
}

// NewTipEngine loads the tip pack from path. A missing file or empty path
// returns a nil engine.
func NewTipEngine(path string, logger *slog.Logger) (*TipEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var pack TipPackFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TipEngine{rules: pack.Tips, logger: logger}, nil
}

// Resolve returns the first matching rule's tip, or empty when none match.
func (e *TipEngine) Resolve(ev models.MonitorEvent) string {
	if e == nil {
		return ""
	}
	for _, rule := range e.rules {
		if rule.Match.EventType != "" && !strings.EqualFold(rule.Match.EventType, ev.EventType) {
			continue
		}
		if rule.Match.Severity != "" && !strings.EqualFold(rule.Match.Severity, string(ev.Severity)) {
			continue
		}
		if len(rule.Match.DescriptionContains) > 0 && !descriptionContains(rule.Match.DescriptionContains, ev.Description) {
			continue
		}
		return rule.Tip
	}
	return ""
}

func descriptionContains(keywords []string, description string) bool {
	desc := strings.ToLower(description)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(desc, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
