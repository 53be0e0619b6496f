package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/railsim/internal/analysis"
	"github.com/san-kum/railsim/internal/sim"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 2)

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(18)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	stableStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	badStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

// VerdictPanel renders one run's stability verdict as a bordered panel.
func VerdictPanel(v *analysis.Verdict) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("stability verdict"))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	row("overall", renderStable(v.Stable()))
	row("ping-ponging", renderFlag(v.PingPonging))
	row("climbing risk", renderFlag(v.ClimbingRiskHigh))
	row("excessive force", renderFlag(v.ExcessiveForce))
	row("excessive energy", renderFlag(v.ExcessiveEnergy))
	if v.Diverged {
		row("diverged", badStyle.Render("yes"))
	}
	b.WriteString("\n")
	row("max lateral", fmt.Sprintf("%.2f mm", v.LateralMax*1000))
	row("max force", fmt.Sprintf("%.1f N", v.MaxContactForce))
	row("oscillation", fmt.Sprintf("%.2f Hz", v.OscillationFrequency))
	row("rail hits /10m", fmt.Sprintf("%.1f", v.HitsPer10m))
	row("energy to rails", fmt.Sprintf("%.1f J", v.EnergyImparted))
	row("climb ratio", fmt.Sprintf("%.0f%%", v.MaxPenetrationRatio*100))

	return panelStyle.Render(b.String())
}

func renderStable(stable bool) string {
	if stable {
		return stableStyle.Render("STABLE")
	}
	return badStyle.Render("UNSTABLE")
}

func renderFlag(set bool) string {
	if set {
		return warnStyle.Render("yes")
	}
	return valueStyle.Render("no")
}

// SweepTable renders the spacing sweep as an aligned table with one row per
// spacing, worst offenders highlighted.
func SweepTable(entries []sim.SweepEntry) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("flange spacing sweep"))
	b.WriteString("\n\n")

	header := fmt.Sprintf("%-12s %-10s %-12s %-12s %-10s %s",
		"spacing", "verdict", "max y", "max force", "freq", "flags")
	b.WriteString(labelStyle.Width(0).Render(header))
	b.WriteString("\n")

	for _, e := range entries {
		flags := verdictFlags(e.Verdict)
		line := fmt.Sprintf("%-12s %-10s %-12s %-12s %-10s %s",
			fmt.Sprintf("%.1f mm", e.SpacingMM),
			verdictWord(e.Verdict),
			fmt.Sprintf("%.2f mm", e.Verdict.LateralMax*1000),
			fmt.Sprintf("%.0f N", e.Verdict.MaxContactForce),
			fmt.Sprintf("%.2f Hz", e.Verdict.OscillationFrequency),
			flags,
		)
		if e.Verdict.Stable() {
			b.WriteString(valueStyle.Render(line))
		} else {
			b.WriteString(badStyle.Render(line))
		}
		b.WriteString("\n")
	}

	return panelStyle.Render(b.String())
}

func verdictWord(v *analysis.Verdict) string {
	if v.Stable() {
		return "stable"
	}
	return "unstable"
}

func verdictFlags(v *analysis.Verdict) string {
	var flags []string
	if v.PingPonging {
		flags = append(flags, "ping-pong")
	}
	if v.ClimbingRiskHigh {
		flags = append(flags, "climbing")
	}
	if v.ExcessiveForce {
		flags = append(flags, "force")
	}
	if v.ExcessiveEnergy {
		flags = append(flags, "energy")
	}
	if v.Diverged {
		flags = append(flags, "diverged")
	}
	return strings.Join(flags, ",")
}
