package drift

import (
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// Report wraps findings for rendering.
type Report struct {
	Findings []Finding `json:"findings" yaml:"findings"`
	Summary  Summary   `json:"summary" yaml:"summary"`
}

// Summary counts findings per severity.
type Summary struct {
	Info    int `json:"info" yaml:"info"`
	Warning int `json:"warning" yaml:"warning"`
	Error   int `json:"error" yaml:"error"`
}

// NewReport builds a report with severity counts.
func NewReport(findings []Finding) Report {
	report := Report{Findings: findings}
	for _, f := range findings {
		switch f.Severity {
		case SeverityInfo:
			report.Summary.Info++
		case SeverityWarning:
			report.Summary.Warning++
		case SeverityError:
			report.Summary.Error++
		}
	}
	return report
}

// WriteText renders the report as doctor-style status lines.
func (r Report) WriteText(w io.Writer) {
	if len(r.Findings) == 0 {
		fmt.Fprintln(w, "[ OK ] lockfile and host configuration are in sync")
		return
	}

	for _, f := range r.Findings {
		fmt.Fprintf(w, "%s %s (%s): %s\n", severityTag(f.Severity), f.Server, f.Kind, f.Detail)
	}
	fmt.Fprintf(w, "\n%d finding(s): %d error, %d warning, %d info\n",
		len(r.Findings), r.Summary.Error, r.Summary.Warning, r.Summary.Info)
}

// WriteYAML renders the report as a YAML document.
func (r Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding drift report: %w", err)
	}
	return enc.Close()
}

func severityTag(s Severity) string {
	switch s {
	case SeverityError:
		return "[FAIL]"
	case SeverityWarning:
		return "[WARN]"
	default:
		return "[INFO]"
	}
}
