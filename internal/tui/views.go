package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/Bytekeeper/xdccmon/internal/domain"
	"github.com/Bytekeeper/xdccmon/internal/tui/styles"
)

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.ShowHelp {
		return m.renderHelp()
	}

	contentHeight := m.Height - ChromeHeight
	bottomHeight := contentHeight * 2 / 5
	topHeight := contentHeight - bottomHeight
	resultsWidth := m.Width - m.Width/2
	logWidth := m.Width / 2

	top := m.renderTransfersPane(m.Width, topHeight)
	bottom := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderResultsPane(resultsWidth, bottomHeight),
		m.renderLogPane(logWidth, bottomHeight),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		top,
		bottom,
		m.renderFooter(),
	)
}

// paneStyle picks the border by focus
func (m Model) paneStyle(pane Pane, width, height int) lipgloss.Style {
	style := styles.InactiveBorder
	if m.Focus == pane {
		style = styles.ActiveBorder
	}
	return style.Width(width - 2).Height(height - 2)
}

// renderTransfersPane renders the main transfer table
func (m Model) renderTransfersPane(width, height int) string {
	innerWidth := width - 4
	rows := height - 4 // border, title, header

	title := styles.TitleStyle.Render("Transfers")
	if m.filtering {
		title += "  " + styles.FilterPromptStyle.Render("/"+m.filterInput.Value())
	}

	// Fixed columns, file name takes the rest
	idW, nickW, stateW := 5, 14, 16
	barW := 22
	fileW := innerWidth - idW - nickW - stateW - barW - 4
	if fileW < 10 {
		fileW = 10
	}

	header := styles.DimStyle.Render(
		styles.Pad("ID", idW) + " " +
			styles.Pad("FILE", fileW) + " " +
			styles.Pad("NICK", nickW) + " " +
			styles.Pad("STATE", stateW) + " " +
			"PROGRESS",
	)

	visible := m.visibleTransfers()
	var lines []string
	lines = append(lines, title, header)

	if len(visible) == 0 {
		lines = append(lines, styles.DimStyle.Render("  no transfers"))
	}

	for i, rec := range visible {
		if i >= rows {
			break
		}
		row := styles.Pad(fmt.Sprintf("%d", rec.ID), idW) + " " +
			styles.Pad(styles.Truncate(rec.FileName, fileW), fileW) + " " +
			styles.Pad(styles.Truncate(rec.Nick, nickW), nickW) + " " +
			renderState(rec.Status, stateW) + " " +
			renderProgress(rec, barW)

		if i == m.TransferCursor && m.Focus == PaneTransfers {
			row = styles.SelectedItemStyle.Render(row)
		} else {
			row = styles.NormalItemStyle.Render(row)
		}
		lines = append(lines, row)
	}

	return m.paneStyle(PaneTransfers, width, height).Render(strings.Join(lines, "\n"))
}

// renderState renders the status column
func renderState(status domain.TransferStatus, width int) string {
	switch status.Kind {
	case domain.StatusProgress:
		return styles.ActiveStyle.Render(styles.Pad("Downloading", width))
	case domain.StatusFailed:
		return styles.FailedStyle.Render(styles.Pad(styles.Truncate("Failed: "+status.Reason, width), width))
	case domain.StatusRequested, domain.StatusDelayed, domain.StatusSenderAbsent, domain.StatusConnecting:
		return styles.WaitingStyle.Render(styles.Pad(status.Kind.String(), width))
	default:
		return styles.Pad(status.Kind.String(), width)
	}
}

// renderProgress renders the bar, byte counts and rate for one record
func renderProgress(rec domain.TransferRecord, barWidth int) string {
	if rec.Status.Kind != domain.StatusProgress {
		return ""
	}

	p := rec.Status.Progress
	var bar string
	if p.FileSize > 0 {
		percent := float64(p.Transferred) / float64(p.FileSize) * 100
		bar = styles.RenderProgressBar(percent, barWidth-12)
		bar += fmt.Sprintf(" %3.0f%%", percent)
	} else {
		// Total size unknown, show raw count only
		bar = styles.DimStyle.Render(humanize.IBytes(p.Transferred))
	}

	if rec.RateKnown {
		bar += " " + styles.SubtitleStyle.Render(formatRate(rec.RateBytesPerSec))
	}
	return bar
}

// formatRate renders a signed bytes-per-interval figure
func formatRate(rate int64) string {
	if rate < 0 {
		return "-" + humanize.IBytes(uint64(-rate)) + "/s"
	}
	return humanize.IBytes(uint64(rate)) + "/s"
}

// renderResultsPane renders the catalog search results
func (m Model) renderResultsPane(width, height int) string {
	innerWidth := width - 4
	rows := height - 3

	title := styles.TitleStyle.Render("Search")
	if q := m.SearchSvc.LastQuery(); q != "" {
		title += " " + styles.SubtitleStyle.Render(q)
	}

	var lines []string
	lines = append(lines, title)

	if m.querying {
		lines = append(lines, m.queryInput.View())
		rows--
	}

	if len(m.Results) == 0 && !m.querying {
		lines = append(lines, styles.DimStyle.Render("  press s to search"))
	}

	nickW := 12
	fileW := innerWidth - nickW - 3
	if fileW < 10 {
		fileW = 10
	}

	for i, res := range m.Results {
		if i >= rows {
			break
		}
		row := styles.Pad(styles.Truncate(res.FileName, fileW), fileW) + " " +
			styles.Pad(styles.Truncate(res.Nick, nickW), nickW)
		if i == m.ResultCursor && m.Focus == PaneResults {
			row = styles.SelectedItemStyle.Render(row)
		} else {
			row = styles.NormalItemStyle.Render(row)
		}
		lines = append(lines, row)
	}

	return m.paneStyle(PaneResults, width, height).Render(strings.Join(lines, "\n"))
}

// renderLogPane renders the live daemon event log
func (m Model) renderLogPane(width, height int) string {
	title := styles.TitleStyle.Render("Events")
	body := m.logView.View()
	return m.paneStyle(PaneLog, width, height).Render(title + "\n" + body)
}

// renderLogContent formats the buffered events for the viewport
func (m Model) renderLogContent() string {
	entries := m.EventLog.Entries()
	if len(entries) == 0 {
		return styles.DimStyle.Render("waiting for events...")
	}

	lines := make([]string, len(entries))
	for i, ev := range entries {
		prefix := ""
		if ev.Prefix != "" {
			prefix = styles.AccentStyle.Render(ev.Prefix) + " "
		}
		lines[i] = prefix + ev.Message
	}
	return strings.Join(lines, "\n")
}

// renderFooter renders a single-line footer with status or key hints
func (m Model) renderFooter() string {
	if m.StatusMsg != "" {
		if m.StatusIsErr {
			return styles.ErrorStyle.Render(" " + m.StatusMsg)
		}
		return styles.SuccessStyle.Render(" " + m.StatusMsg)
	}

	hints := []string{
		styles.HelpKeyStyle.Render("s") + styles.HelpDescStyle.Render(" search"),
		styles.HelpKeyStyle.Render("/") + styles.HelpDescStyle.Render(" filter"),
		styles.HelpKeyStyle.Render("enter") + styles.HelpDescStyle.Render(" start"),
		styles.HelpKeyStyle.Render("x") + styles.HelpDescStyle.Render(" abort"),
		styles.HelpKeyStyle.Render("tab") + styles.HelpDescStyle.Render(" pane"),
		styles.HelpKeyStyle.Render("?") + styles.HelpDescStyle.Render(" help"),
		styles.HelpKeyStyle.Render("q") + styles.HelpDescStyle.Render(" quit"),
	}
	return " " + strings.Join(hints, "  ")
}

// renderHelp renders the full-screen help view
func (m Model) renderHelp() string {
	type entry struct {
		key  string
		desc string
	}
	sections := []struct {
		title   string
		entries []entry
	}{
		{"Navigation", []entry{
			{"j/↓, k/↑", "move selection"},
			{"g, G", "jump to top / bottom"},
			{"tab", "cycle focused pane"},
		}},
		{"Transfers", []entry{
			{"x", "abort selected transfer"},
			{"/", "filter transfer list"},
			{"r", "fetch a snapshot now"},
		}},
		{"Search", []entry{
			{"s", "search the catalog"},
			{"enter", "start transfer from result"},
		}},
		{"General", []entry{
			{"?", "toggle this help"},
			{"q, ctrl+c", "quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Help") + "\n\n")
	for _, section := range sections {
		b.WriteString(styles.AccentStyle.Render(section.title) + "\n")
		for _, e := range section.entries {
			b.WriteString("  " + styles.HelpKeyStyle.Render(styles.Pad(e.key, 12)) +
				styles.HelpDescStyle.Render(e.desc) + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(styles.DimStyle.Render("press esc to close"))

	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, b.String())
}
