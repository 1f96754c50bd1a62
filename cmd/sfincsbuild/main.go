package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/maseology/sfincs"
	"github.com/maseology/sfincs/grid"
	"github.com/maseology/sfincs/merge"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	logger  *zap.Logger
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "sfincsbuild",
	Short: "Assemble flood-solver input sets from prioritized raster stacks",
	Long: `sfincsbuild merges prioritized elevation and roughness sources onto a
target grid, burns river reaches, classifies the cell mask, attaches
boundary forcings and writes the model-ready file set.

A build is driven by a YAML manifest; see the build subcommand.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		if logger, err = config.Build(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var buildCmd = &cobra.Command{
	Use:   "build [manifest.yml]",
	Short: "Run a full model build from a manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mdl, err := sfincs.Build(args[0])
		if err != nil {
			return err
		}
		logger.Info("build complete",
			zap.String("manifest", args[0]),
			zap.Int("ncells", mdl.GD.Ncells()),
			zap.Int("nactives", mdl.GD.Nactives()))
		return nil
	},
}

var gdefCmd = &cobra.Command{
	Use:   "gdef [file.gdef]",
	Short: "Print a grid definition summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gd, err := grid.ReadGDEF(args[0], true)
		if err != nil {
			return err
		}
		ctr := gd.Centre()
		fmt.Printf("   centre: (%.1f, %.1f)  cell area: %.1f m²\n", ctr.X, ctr.Y, gd.CellArea())
		return nil
	},
}

var (
	mergeGdefFP   string
	mergeOutFP    string
	mergeMethod   string
	mergeInterp   string
	mergeParallel bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge [sources...]",
	Short: "Merge raster sources onto a target grid and write the result",
	Long: `Merges source rasters in priority order onto the target grid and writes
the merged surface as a raw float32 raster with a header sidecar.

Each source is either a cached raster snapshot (source.gob) or a raw
float32 raster with its grid definition sidecar (values.bil@geom.gdef).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gd, err := grid.ReadGDEF(mergeGdefFP, true)
		if err != nil {
			return err
		}

		mth, err := merge.ParseMethod(mergeMethod)
		if err != nil {
			return err
		}
		itp, err := merge.ParseInterp(mergeInterp)
		if err != nil {
			return err
		}

		lyrs := make([]merge.Layer, len(args))
		for i, src := range args {
			var rs *merge.Raster
			switch {
			case strings.HasSuffix(src, ".gob"):
				rs, err = merge.LoadGobRaster(src)
			case strings.Contains(src, "@"):
				s := strings.SplitN(src, "@", 2)
				rs, err = merge.ReadBil32(s[1], s[0])
			default:
				err = fmt.Errorf("source %q: want source.gob or values.bil@geom.gdef", src)
			}
			if err != nil {
				return err
			}
			lyrs[i] = merge.Layer{Name: rs.Name, Data: rs, Interp: itp}
		}

		eng := merge.Engine{GD: gd, Default: mth, Concurrent: mergeParallel, Diag: logger.Sugar().Debugf}
		res, err := eng.Merge(lyrs)
		if err != nil {
			return err
		}
		fmt.Println(" " + res.Summary())
		return sfincs.WriteSurface(gd, mergeOutFP, res.Z)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("sfincsbuild " + version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	mergeCmd.Flags().StringVar(&mergeGdefFP, "gdef", "", "Target grid definition file (required)")
	mergeCmd.Flags().StringVarP(&mergeOutFP, "out", "o", "merged.bil", "Output raster")
	mergeCmd.Flags().StringVar(&mergeMethod, "method", "first", "Default merge method (first|last|mean|max|min)")
	mergeCmd.Flags().StringVar(&mergeInterp, "interp", "bilinear", "Resampling kernel (bilinear|nearest)")
	mergeCmd.Flags().BoolVar(&mergeParallel, "concurrent", false, "Resample layers concurrently")
	mergeCmd.MarkFlagRequired("gdef")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(gdefCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
