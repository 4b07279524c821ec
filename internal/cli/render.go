package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"rrtimeline/internal/chart"
	"rrtimeline/internal/config"
	"rrtimeline/internal/logutil"
	"rrtimeline/internal/metrics"
	"rrtimeline/internal/models"
	"rrtimeline/internal/scene"
	"rrtimeline/internal/transition"
)

func newRenderCmd() *cobra.Command {
	var configPath string
	var input string
	var output string
	var stats bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a process list to a static SVG timeline",
		Long: `Reads a YAML or JSON list of process entries and writes the final
state of the timeline chart as SVG.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			var entries []models.ProcessEntry
			if input == "" {
				entries = cfg.Processes
			} else {
				entries, err = readEntries(input)
				if err != nil {
					return err
				}
			}

			svg, err := renderSVG(entries, layoutFromConfig(cfg.Chart), cfg.Chart.HostID, logutil.OrNop(logger))
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = io.WriteString(cmd.OutOrStdout(), svg+"\n")
			} else {
				err = os.WriteFile(output, []byte(svg+"\n"), 0o644)
			}
			if err != nil {
				return fmt.Errorf("write svg: %w", err)
			}

			if stats {
				waiting, turnaround := metrics.Averages(metrics.Summarize(entries))
				fmt.Fprintf(cmd.ErrOrStderr(), "processes:               %d\n", len(entries))
				fmt.Fprintf(cmd.ErrOrStderr(), "average waiting time:    %s\n", humanize.FtoaWithDigits(waiting, 2))
				fmt.Fprintf(cmd.ErrOrStderr(), "average turnaround time: %s\n", humanize.FtoaWithDigits(turnaround, 2))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file (YAML)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "Process list (YAML or JSON); defaults to the config processes")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print scheduling averages to stderr")
	return cmd
}

func readEntries(path string) ([]models.ProcessEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var entries []models.ProcessEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	return entries, nil
}

// renderSVG draws entries on a fresh chart and returns the settled scene.
func renderSVG(entries []models.ProcessEntry, layout chart.Layout, hostID string, log *zap.Logger) (string, error) {
	c := chart.New(layout, transition.SystemClock, log)
	if !c.Mount(scene.NewDocument(hostID), hostID) {
		return "", errors.New("chart host is missing")
	}
	c.Update(chart.Flatten(entries))
	c.Finish()
	return c.SVG(), nil
}
