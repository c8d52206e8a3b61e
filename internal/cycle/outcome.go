package cycle

import (
	"strings"

	"github.com/ggonzalez94/goldilocks-keeper/internal/metrics"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

func (s Severity) prefix() string {
	switch s {
	case SeveritySuccess:
		return "✅"
	case SeverityWarning:
		return "⚠️"
	case SeverityError:
		return "❌"
	default:
		return "ℹ️"
	}
}

type Outcome struct {
	Step     string   `json:"step"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// String renders the outcome as one notification line.
func (o Outcome) String() string {
	return o.Severity.prefix() + " " + o.Message
}

// collector accumulates the outcomes of one cycle in step order.
type collector struct {
	outcomes []Outcome
	metrics  *metrics.Metrics
}

func (c *collector) add(step string, severity Severity, message string) {
	c.outcomes = append(c.outcomes, Outcome{Step: step, Severity: severity, Message: message})
	c.metrics.RecordStepOutcome(step, string(severity))
}

func (c *collector) hasErrors() bool {
	for _, o := range c.outcomes {
		if o.Severity == SeverityError {
			return true
		}
	}
	return false
}

// FormatOutcomes joins outcomes into the aggregated notification text.
func FormatOutcomes(outcomes []Outcome) string {
	lines := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		lines = append(lines, o.String())
	}
	return strings.Join(lines, "\n")
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
