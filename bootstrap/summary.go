package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/mainkit/component"
	"github.com/kbukum/mainkit/di"
	"github.com/kbukum/mainkit/observability"
	"github.com/kbukum/mainkit/version"
)

// RegistrationLine is one registration as shown in the summary.
type RegistrationLine struct {
	Key         string
	Mode        string
	Initialized bool
	Type        string
	Details     string
}

// Summary describes a live container.
type Summary struct {
	ContainerID     string
	Version         string
	Arguments       []string
	StartupDuration time.Duration
	Registrations   []RegistrationLine
	Health          *observability.ServiceHealth
}

// NewSummary collects the summary of c. Lifecycle components implementing
// component.Describable contribute their own description.
func NewSummary(ctx context.Context, c di.Container, startup time.Duration) *Summary {
	s := &Summary{
		ContainerID:     c.ID(),
		Version:         version.GetShortVersion(),
		StartupDuration: startup,
		Health:          c.Health(ctx),
	}
	if args, ok := di.TryResolve[[]string](c, di.CommandLineArgumentsKey); ok {
		s.Arguments = cloneArgs(args)
	}

	for _, reg := range c.Registrations() {
		line := RegistrationLine{
			Key:         reg.Key,
			Mode:        reg.Mode.String(),
			Initialized: reg.Initialized,
		}
		if reg.Component {
			line.Type = "component"
			if d, ok := di.TryResolve[component.Describable](c, reg.Key); ok {
				desc := d.Describe()
				if desc.Name != "" {
					line.Key = desc.Name
				}
				if desc.Type != "" {
					line.Type = desc.Type
				}
				line.Details = desc.Details
			}
		}
		s.Registrations = append(s.Registrations, line)
	}
	return s
}

// Write prints the summary to w.
func (s *Summary) Write(w io.Writer) {
	fmt.Fprintf(w, "\n🚀 container %s (mainkit %s) live in %.3fs\n", s.ContainerID, s.Version, s.StartupDuration.Seconds())

	if len(s.Arguments) == 0 {
		fmt.Fprintf(w, "   arguments: (none)\n")
	} else {
		fmt.Fprintf(w, "   arguments: %s\n", strings.Join(s.Arguments, " "))
	}

	fmt.Fprintf(w, "\n📦 Registrations (%d)\n", len(s.Registrations))
	for i, r := range s.Registrations {
		line := fmt.Sprintf("%s %s [%s]", statusIcon(r.Mode, r.Initialized), r.Key, r.Mode)
		if r.Type != "" {
			line += " " + r.Type
		}
		if r.Details != "" {
			line += ": " + r.Details
		}
		fmt.Fprintf(w, "   %s %s\n", treePrefix(i, len(s.Registrations)), line)
	}

	if s.Health != nil && len(s.Health.Components) > 0 {
		fmt.Fprintf(w, "\n🏥 Health (%s)\n", s.Health.Status)
		for i, h := range s.Health.Components {
			msg := ""
			if h.Message != "" {
				msg = " - " + h.Message
			}
			fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(s.Health.Components)),
				healthStatusIcon(h.Status), h.Name, h.Status, msg)
		}
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func statusIcon(mode string, initialized bool) string {
	switch {
	case initialized:
		return "✅"
	case mode == di.Lazy.String():
		return "⚡"
	default:
		return "⚠️"
	}
}

func healthStatusIcon(status observability.HealthStatus) string {
	switch status {
	case observability.HealthStatusUp:
		return "✅"
	case observability.HealthStatusDegraded:
		return "⚠️"
	case observability.HealthStatusDown:
		return "❌"
	default:
		return "❓"
	}
}
