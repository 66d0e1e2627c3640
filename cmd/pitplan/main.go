// PitPlan - Extraction Plan Optimizer
//
// Command-line front end for analyzing extraction regions against a point
// cloud, generating extraction plans and exporting reports.
//
// Build:
//   go build -o pitplan ./cmd/pitplan
//
// Cross-compile:
//   GOOS=windows GOARCH=amd64 go build -o pitplan.exe ./cmd/pitplan
//   GOOS=darwin  GOARCH=arm64 go build -o pitplan-darwin ./cmd/pitplan

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "pitplan",
		Short:        "Extraction plan optimizer for point-cloud regions",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(optimizeCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(presetsCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(serveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func analyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze [project-path]",
		Short: "Compute region statistics and valid start bearings",
		Long: "Loads the point file and region outlines, computes per-region statistics and the\n" +
			"valid start bearing table, and saves the result as a project file.",
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runAnalyze(args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.points, "points", "", "point file (CSV or XLSX); defaults to the project's point source")
	cmd.Flags().StringVar(&opts.regions, "regions", "", "DXF file with closed region outlines")
	cmd.Flags().Float64Var(&opts.minZ, "min-z", 0, "lower elevation bound for imported regions")
	cmd.Flags().Float64Var(&opts.maxZ, "max-z", 0, "upper elevation bound for imported regions")
	cmd.Flags().Float64Var(&opts.standoff, "standoff", -1, "standoff distance (negative keeps the project value)")
	cmd.Flags().Float64Var(&opts.clearance, "clearance", -1, "clearance radius (negative keeps the project value)")
	return cmd
}

func optimizeCmd() *cobra.Command {
	var opts optimizeOptions

	cmd := &cobra.Command{
		Use:   "optimize [project-path]",
		Short: "Generate an extraction plan with the genetic optimizer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.seedSet = cmd.Flags().Changed("seed")
			return runOptimize(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.targetCount, "target-count", 0, "target number of extracted points (0 keeps the project target)")
	cmd.Flags().Float64Var(&opts.targetGrade, "target-grade", 0, "target average grade (0 keeps the project target)")
	cmd.Flags().Uint32Var(&opts.seed, "seed", 0, "random seed for a reproducible run")
	cmd.Flags().StringVar(&opts.preset, "preset", "", "optimizer preset name")
	cmd.Flags().StringVar(&opts.mqttConfig, "mqtt-config", "", "run on a remote executor using this MQTT config file")
	cmd.Flags().BoolVar(&opts.remote, "remote", false, "run on a remote executor configured from the environment")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the plan without saving it to the project")
	return cmd
}

func statsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats [project-path]",
		Short: "Simulate the project's plan and print plan statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runStats(args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the outcome as JSON")
	return cmd
}

func compareCmd() *cobra.Command {
	var seed uint32

	cmd := &cobra.Command{
		Use:   "compare [project-path]",
		Short: "Run what-if optimizer scenarios side by side",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), args[0], seed)
		},
	}

	cmd.Flags().Uint32Var(&seed, "seed", 1, "random seed shared by all scenarios")
	return cmd
}

func exportCmd() *cobra.Command {
	var format, output string
	var dpmm float64

	cmd := &cobra.Command{
		Use:   "export [project-path]",
		Short: "Export the simulated plan as PDF, labels, XLSX, SVG, PNG or DXF",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runExport(args[0], format, output, dpmm)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "pdf", "pdf, labels, xlsx, svg, png or dxf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (defaults to the project name with the format extension)")
	cmd.Flags().Float64Var(&dpmm, "dpmm", 4, "PNG resolution in dots per millimeter")
	return cmd
}

func presetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the built-in and saved optimizer presets",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPresets()
		},
	}

	var from, description string
	save := &cobra.Command{
		Use:   "save <name>",
		Short: "Save optimizer parameters as a custom preset",
		Long:  "Saves the optimizer parameters of a project, or the application defaults when --from is empty.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPresetSave(args[0], description, from)
		},
	}
	save.Flags().StringVar(&from, "from", "", "project whose optimizer parameters are saved")
	save.Flags().StringVarP(&description, "description", "d", "", "preset description")

	export := &cobra.Command{
		Use:   "export <name> <file>",
		Short: "Write a preset to a JSON file for sharing",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPresetExport(args[0], args[1])
		},
	}

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Add a preset from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPresetImport(args[0])
		},
	}

	cmd.AddCommand(save, export, imp)
	return cmd
}

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up or restore application settings and custom presets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "export <file>",
		Short: "Write settings and custom presets to a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBackupExport(args[0])
		},
	}, &cobra.Command{
		Use:   "import <file>",
		Short: "Restore settings and merge custom presets from a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBackupImport(args[0])
		},
	})
	return cmd
}

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the optimizer executor behind MQTT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file (MQTT_* environment variables override it)")
	return cmd
}
