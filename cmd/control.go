package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/tabtrace/pkg/models"
)

func newPauseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause tracking; open sessions are submitted immediately",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := a.agentCall(cmd.Context(), http.MethodPost, "/api/pause")
			if err != nil {
				return err
			}
			return printTrackingStatus(cmd, status, false)
		},
	}
}

func newResumeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume tracking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := a.agentCall(cmd.Context(), http.MethodPost, "/api/resume")
			if err != nil {
				return err
			}
			return printTrackingStatus(cmd, status, false)
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the agent is tracking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := a.agentCall(cmd.Context(), http.MethodGet, "/api/status")
			if err != nil {
				return err
			}
			return printTrackingStatus(cmd, status, true)
		},
	}
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print the dashboard URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.cfg.DashboardURL)
			return err
		},
	}
}

// printTrackingStatus styles only when out is a terminal; pipes get plain text
func printTrackingStatus(cmd *cobra.Command, status models.TrackingStatus, withSessions bool) error {
	out := cmd.OutOrStdout()
	renderer := lipgloss.NewRenderer(out)

	label := renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).Render("⏸ Tracking Paused")
	if status.Tracking {
		label = renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("42")).Render("✓ Tracking Active")
	}
	if _, err := fmt.Fprintln(out, label); err != nil {
		return err
	}
	if withSessions {
		_, err := fmt.Fprintf(out, "Open sessions: %d\n", status.OpenSessions)
		return err
	}
	return nil
}

// agentCall sends one control request to the running agent
func (a *app) agentCall(ctx context.Context, method, path string) (models.TrackingStatus, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.cfg.AgentURL+path, nil)
	if err != nil {
		return models.TrackingStatus{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return models.TrackingStatus{}, fmt.Errorf("reach agent at %s (is `tabtrace track` running?): %w", a.cfg.AgentURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return models.TrackingStatus{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.TrackingStatus{}, fmt.Errorf("agent returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var status models.TrackingStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return models.TrackingStatus{}, fmt.Errorf("decode status: %w", err)
	}
	return status, nil
}
