package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/hrepl/internal/application"
	"github.com/bnema/hrepl/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now time.Time
}

func renderView(snapshots []application.TargetSnapshot, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("REPL Sessions"),
		s.header.Render(fmt.Sprintf("sessions: %d", len(snapshots))),
	}

	if len(snapshots) == 0 {
		lines = append(lines, s.empty.Render("No live sessions."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, snapshot := range snapshots {
		lines = append(lines, s.section.Render(renderSession(snapshot, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(snapshot application.TargetSnapshot, opts RenderOptions, s styles) string {
	parts := []string{
		s.target.Render(targetTitle(snapshot.Target)),
		stateLine(snapshot, s),
		moduleLine(snapshot.Session, s),
		modeLine(snapshot, opts, s),
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func targetTitle(target domain.Target) string {
	return fmt.Sprintf("%s (%s %s)", target.ID, target.PackageName, target.Stanza)
}

func stateLine(snapshot application.TargetSnapshot, s styles) string {
	if !snapshot.Available {
		if snapshot.Starting {
			return s.meta.Render("state: starting")
		}
		return s.warning.Render("state: down")
	}

	loaded := snapshot.Session.Loaded
	switch {
	case loaded == nil:
		return s.detail.Render("state: up, nothing loaded")
	case loaded.Failed:
		return s.failed.Render(fmt.Sprintf("state: %s failed to load", loaded.Unit))
	default:
		return s.ok.Render(fmt.Sprintf("state: %s loaded", loaded.Unit))
	}
}

func moduleLine(session domain.SessionSnapshot, s styles) string {
	return s.detail.Render(fmt.Sprintf(
		"modules: %d active, %d seen this session",
		len(session.LoadedModules),
		len(session.EverLoadedModules),
	))
}

func modeLine(snapshot application.TargetSnapshot, opts RenderOptions, s styles) string {
	mode := "object-code"
	if !snapshot.Session.ObjectCodeEnabled {
		mode = "byte-code"
	}

	line := fmt.Sprintf("mode: %s", mode)
	if uptime := formatUptime(snapshot.StartedAt, opts.Now); uptime != "" {
		line += s.meta.Render(fmt.Sprintf("  up %s", uptime))
	}

	return s.detail.Render(line)
}

func formatUptime(startedAt, now time.Time) string {
	if startedAt.IsZero() || now.IsZero() || now.Before(startedAt) {
		return ""
	}

	elapsed := now.Sub(startedAt)
	switch {
	case elapsed < time.Minute:
		return fmt.Sprintf("%ds", int(elapsed.Seconds()))
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm", int(elapsed.Minutes()))
	default:
		return strings.TrimSuffix(fmt.Sprintf("%dh%dm", int(elapsed.Hours()), int(elapsed.Minutes())%60), "0m")
	}
}
