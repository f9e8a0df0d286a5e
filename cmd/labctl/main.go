// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// labctl is the bench command line: probe what's connected, poke raw
// SCPI at an instrument, drive the common instruments, and run gyro
// characterization tests.
package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/photonlab/hardware"
	"github.com/photonlab/hardware/daq"
	"github.com/photonlab/hardware/gyro"
	"github.com/photonlab/hardware/lib/cmdlog"
	"github.com/photonlab/hardware/lib/find"
	"github.com/photonlab/hardware/scpi"
	"github.com/photonlab/hardware/units"
	"github.com/photonlab/hardware/visa"
)

var (
	benchFile string
	runsDB    string
)

func openBench() (*hardware.Bench, error) {
	cfg, err := hardware.LoadConfig(benchFile)
	if err != nil {
		return nil, err
	}
	return hardware.New(cfg), nil
}

func main() {
	root := &cobra.Command{
		Use:           "labctl",
		Short:         "control the photonics bench",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&benchFile, "bench", "", "bench file (default $BENCH_FILE)")

	root.AddCommand(probeCmd(), ttysCmd(), queryCmd(), fungenCmd(), rotCmd(), daqCmd(), gyroCmd())

	if err := root.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "send *IDN? to every instrument on the bench",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBench()
			if err != nil {
				return err
			}
			defer b.Close()
			ids, err := b.Probe()
			for role, id := range ids {
				fmt.Printf("%-6s %s\n", role, id)
			}
			return err
		},
	}
}

func ttysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ttys",
		Short: "list USB serial devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			ttys, err := find.AllUsbTtys()
			if err != nil {
				return err
			}
			for _, ut := range ttys {
				fmt.Println(ut)
			}
			return nil
		},
	}
}

func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <resource> <command>...",
		Short: "send raw SCPI to a VISA resource",
		Long: `Commands ending in ? are queries and print the response.
Example: labctl query GPIB0::10::INSTR '*IDN?' 'FREQ 1000' 'FREQ?'`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := visa.Open(args[0])
			if err != nil {
				return err
			}
			defer conn.Close()
			bus := scpi.NewClient(conn)
			for _, c := range args[1:] {
				if c[len(c)-1] == '?' {
					_, err = cmdlog.Query(bus, c)
				} else {
					err = cmdlog.Command(bus, c)
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func fungenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fungen",
		Short: "function generator",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "freq [hz]",
		Short: "get or set the output frequency",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBench()
			if err != nil {
				return err
			}
			defer b.Close()
			awg, err := b.AWG()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				hz, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return err
				}
				return awg.SetFrequency(hz)
			}
			hz, err := awg.Frequency()
			if err != nil {
				return err
			}
			fmt.Println(units.FormatFrequency(hz))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "voltage [v]",
		Short: "get or set the output amplitude",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBench()
			if err != nil {
				return err
			}
			defer b.Close()
			awg, err := b.AWG()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				v, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return err
				}
				return awg.SetVoltage(v)
			}
			v, err := awg.Voltage()
			if err != nil {
				return err
			}
			fmt.Println(units.FormatVoltage(v))
			return nil
		},
	})
	return cmd
}

func rotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rot",
		Short: "rotation stage",
	}
	stageDo := func(fn func(ctx context.Context, b *hardware.Bench) error) error {
		b, err := openBench()
		if err != nil {
			return err
		}
		defer b.Close()
		return fn(context.Background(), b)
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "angle [deg]",
		Short: "read the stage angle, or move to an absolute angle",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return stageDo(func(ctx context.Context, b *hardware.Bench) error {
				stage, err := b.Rotation()
				if err != nil {
					return err
				}
				if len(args) == 1 {
					deg, err := strconv.ParseFloat(args[0], 64)
					if err != nil {
						return err
					}
					return stage.MoveTo(ctx, deg)
				}
				deg, err := stage.Angle(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%G deg\n", deg)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "velocity [deg-per-sec]",
		Short: "get or set the slew velocity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return stageDo(func(ctx context.Context, b *hardware.Bench) error {
				stage, err := b.Rotation()
				if err != nil {
					return err
				}
				if len(args) == 1 {
					v, err := strconv.ParseFloat(args[0], 64)
					if err != nil {
						return err
					}
					return stage.SetVelocity(ctx, v)
				}
				v, err := stage.Velocity(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%G deg/s\n", v)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "halt any move in progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return stageDo(func(ctx context.Context, b *hardware.Bench) error {
				stage, err := b.Rotation()
				if err != nil {
					return err
				}
				return stage.Stop(ctx)
			})
		},
	})
	return cmd
}

func daqCmd() *cobra.Command {
	var rate float64
	cmd := &cobra.Command{
		Use:   "daq read <seconds>",
		Short: "record DAQ samples and print them",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "read" {
				return cmd.Usage()
			}
			seconds, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return err
			}
			b, err := openBench()
			if err != nil {
				return err
			}
			defer b.Close()
			acq, err := b.DAQ()
			if err != nil {
				return err
			}
			var opts []daq.ReadOption
			if rate > 0 {
				opts = append(opts, daq.WithRate(rate))
			}
			data, err := acq.Read(context.Background(), seconds, opts...)
			if err != nil {
				return err
			}
			for _, v := range data {
				fmt.Printf("%G\n", v)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&rate, "rate", 0, "sample rate in Hz (default from lock-in)")
	return cmd
}

func gyroCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gyro",
		Short: "fiber optic gyro characterization",
	}
	cmd.PersistentFlags().StringVar(&runsDB, "db", "runs.db", "tombstone run archive")

	cmd.AddCommand(&cobra.Command{
		Use:   "scale",
		Short: "calibrate the scale factor in deg/h per volt",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBench()
			if err != nil {
				return err
			}
			defer b.Close()
			g, err := b.Gyro()
			if err != nil {
				return err
			}
			sf, err := g.ScaleFactor(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("%G deg/h/V\n", sf)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "tombstone <duration>",
		Short: "record a zero-input run and archive it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			duration, err := time.ParseDuration(args[0])
			if err != nil {
				return err
			}
			b, err := openBench()
			if err != nil {
				return err
			}
			defer b.Close()
			g, err := b.Gyro()
			if err != nil {
				return err
			}
			run, err := g.Tombstone(context.Background(), duration)
			if err != nil {
				return err
			}
			store, err := gyro.OpenStore(runsDB)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveRun(run); err != nil {
				return err
			}
			fmt.Printf("run %d: %d samples, bias %G deg/h\n", run.ID, len(run.Volts), run.Bias())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "arw <duration>",
		Short: "measure the angular random walk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return cmd.Usage()
			}
			duration, err := time.ParseDuration(args[0])
			if err != nil {
				return err
			}
			b, err := openBench()
			if err != nil {
				return err
			}
			defer b.Close()
			g, err := b.Gyro()
			if err != nil {
				return err
			}
			arw, err := g.ARW(context.Background(), duration)
			if err != nil {
				return err
			}
			fmt.Printf("%G deg/sqrt(h)\n", arw)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "runs",
		Short: "list archived tombstone runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := gyro.OpenStore(runsDB)
			if err != nil {
				return err
			}
			defer store.Close()
			runs, err := store.ListRuns()
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%4d  %-10s %s  %6d samples  %G Hz\n",
					r.ID, r.Gyro, r.Started.Format(time.RFC3339), r.Samples, r.Rate)
			}
			return nil
		},
	})
	return cmd
}
