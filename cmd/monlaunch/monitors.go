package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/frudas24/monlaunch/internal/affinity"
	"github.com/frudas24/monlaunch/internal/monitor"
)

func newMonitorsCmd(root *options) *cobra.Command {
	var (
		affinities []string
		record     string
	)
	cmd := &cobra.Command{
		Use:   "monitors",
		Short: "List the monitors reported by the display server",
		Long: `Lists every active monitor. With --affinities the monitors those
affinities select are marked, in the order a rule would use them.
--record saves the snapshot for later use with --monitors-file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, _, err := loadRuntime(cmd, root)
			if err != nil {
				return err
			}
			var spec affinity.Spec
			if len(affinities) > 0 {
				if spec, err = affinity.ParseSpec(affinities); err != nil {
					return err
				}
			}
			src, _ := newSource(root, settings)
			list, err := src.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list monitors: %w", err)
			}
			if record != "" {
				if err := monitor.SaveStatic(record, list); err != nil {
					return fmt.Errorf("record monitors: %w", err)
				}
			}
			return printMonitors(cmd.OutOrStdout(), list, spec)
		},
	}
	cmd.Flags().StringArrayVarP(&affinities, "affinities", "a", nil, "mark the monitors these affinities select")
	cmd.Flags().StringVar(&record, "record", "", "also write the snapshot to this YAML file")
	return cmd
}

// printMonitors renders list as a table. When spec is set, a column shows
// each selected monitor's position in the selection.
func printMonitors(w io.Writer, list []monitor.Monitor, spec affinity.Spec) error {
	rank := map[string]int{}
	headers := []string{"NAME", "PRIMARY", "GEOMETRY", "SIZE (MM)", "ORIENTATION"}
	if len(spec) > 0 {
		for i, m := range affinity.Resolve(spec, list) {
			rank[m.Name] = i + 1
		}
		headers = append(headers, "SELECTED")
	}

	t := table.New().Border(lipgloss.NormalBorder()).Headers(headers...)
	for _, m := range list {
		row := []string{
			m.Name,
			yesNo(m.Primary),
			fmt.Sprintf("%dx%d%+d%+d", m.W, m.H, m.X, m.Y),
			physicalSize(m),
			orientation(m),
		}
		if len(spec) > 0 {
			sel := "-"
			if r, ok := rank[m.Name]; ok {
				sel = strconv.Itoa(r)
			}
			row = append(row, sel)
		}
		t.Row(row...)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func physicalSize(m monitor.Monitor) string {
	if m.WidthMM == 0 || m.HeightMM == 0 {
		return "unknown"
	}
	return fmt.Sprintf("%dx%d", m.WidthMM, m.HeightMM)
}

func orientation(m monitor.Monitor) string {
	switch {
	case m.Landscape():
		return "landscape"
	case m.Portrait():
		return "portrait"
	default:
		return "square"
	}
}
