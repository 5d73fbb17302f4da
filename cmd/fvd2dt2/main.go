// Command fvd2dt2 exercises the d2dt2 scheme: it prints the blending
// coefficients of a step pair, inspects meshes, and runs oscillator cases.
package main

import (
	"fmt"
	"os"

	"github.com/notargets/FVKernel/d2dt2"
	"github.com/notargets/FVKernel/mesh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	logger  *zap.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fvd2dt2",
		Short: "Second order time derivative for finite volume fields",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.AddCommand(newCoeffsCmd(), newMeshCmd(), newRunCmd())
	return root
}

func newCoeffsCmd() *cobra.Command {
	var dt, dt0 float64
	cmd := &cobra.Command{
		Use:   "coeffs",
		Short: "Print the blending coefficients for a step pair",
		Long: `Prints coefft, coefft00, coefft0 and rDeltaT2 for the current step dt
and the previous step dt0. dt0 defaults to dt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("dt0") {
				dt0 = dt
			}
			if dt <= 0 || dt0 <= 0 {
				return fmt.Errorf("step sizes must be positive, got dt=%g dt0=%g", dt, dt0)
			}
			c := d2dt2.NewCoefficients(dt, dt0)
			fmt.Fprintf(cmd.OutOrStdout(), "coefft   = %.10g\ncoefft00 = %.10g\ncoefft0  = %.10g\nrDeltaT2 = %.10g\n",
				c.Coefft, c.Coefft00, c.Coefft0, c.RDeltaT2)
			return nil
		},
	}
	cmd.Flags().Float64Var(&dt, "dt", 0.1, "current time step")
	cmd.Flags().Float64Var(&dt0, "dt0", 0.1, "previous time step")
	return cmd
}

func newMeshCmd() *cobra.Command {
	var box []int
	cmd := &cobra.Command{
		Use:   "mesh [file]",
		Short: "Summarize a tet mesh file or a unit box",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m *mesh.Mesh
			if len(args) == 1 {
				tm, err := mesh.ReadTetMesh(args[0])
				if err != nil {
					return err
				}
				m = tm.Mesh
			} else {
				if len(box) != 3 {
					return fmt.Errorf("--box takes nx,ny,nz, got %v", box)
				}
				var err error
				if m, err = mesh.NewBox(box[0], box[1], box[2], 1, 1, 1); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cells          %d\n", m.NCells())
			fmt.Fprintf(out, "total volume   %.10g\n", m.TotalVolume())
			fmt.Fprintf(out, "boundary faces %d\n", m.NBoundaryFaces())
			for _, p := range m.PatchSpecs() {
				fmt.Fprintf(out, "  %-12s %d\n", p.Name, p.Size)
			}
			logger.Debug("mesh summary", zap.Int("cells", m.NCells()))
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&box, "box", []int{4, 4, 4}, "box resolution nx,ny,nz")
	return cmd
}

func newRunCmd() *cobra.Command {
	var (
		configPath string
		endTime    float64
		device     bool
		plotPath   string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an oscillator case",
		Long: `Integrates rho d2phi/dt2 + rho omega^2 phi = 0 in every cell with the
implicit d2dt2 operator and reports the error against cos(omega t).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := DefaultCase()
			if configPath != "" {
				loaded, err := LoadCase(configPath)
				if err != nil {
					return err
				}
				c = *loaded
			}
			if cmd.Flags().Changed("end") {
				c.Time.End = endTime
			}
			if cmd.Flags().Changed("device") {
				c.Device.Enabled = device
			}
			if cmd.Flags().Changed("plot") {
				c.Output.Plot = plotPath
			}
			if err := c.Validate(); err != nil {
				return err
			}

			h, err := Simulate(&c, logger)
			if err != nil {
				return err
			}
			last := h.Samples[len(h.Samples)-1]
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d cells, t=%.6g, phi=%.6g, exact=%.6g, max error %.3e\n",
				h.RunID, h.Cells, last.Time, last.Mean, last.Exact, h.MaxError)
			if c.Output.Plot != "" {
				if err := h.SavePlot(c.Output.Plot); err != nil {
					return err
				}
				logger.Info("wrote plot", zap.String("path", c.Output.Plot))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML case file")
	cmd.Flags().Float64Var(&endTime, "end", 0, "override time.end")
	cmd.Flags().BoolVar(&device, "device", false, "evaluate on an OCCA device")
	cmd.Flags().StringVar(&plotPath, "plot", "", "write a time history plot")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
