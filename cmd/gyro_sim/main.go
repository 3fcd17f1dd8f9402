// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/relabs-tech/gyro_conditioner/internal/app"
	"github.com/relabs-tech/gyro_conditioner/internal/config"
)

func main() {
	configPath := flag.String("config", "./gyro_config.txt", "path to configuration file")
	ticks := flag.Int("ticks", 20000, "number of loop ticks to simulate")
	printEvery := flag.Int("print", 1000, "ticks between printed snapshots (0 disables)")
	seed := flag.Uint64("seed", 1, "noise seed")
	moveEvery := flag.Int("move-every", 0, "ticks between simulated movement bursts (0 disables)")
	moveLength := flag.Int("move-length", 50, "length of each movement burst in ticks")
	moveAmp := flag.Float64("move-amp", 2000, "peak rate of a movement burst in counts")
	flag.Parse()

	log.Println("starting gyro-conditioner simulation (mock gyro, no broker)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	report, err := app.RunSimulation(config.Get(), app.SimOptions{
		Ticks:      *ticks,
		PrintEvery: *printEvery,
		Seed:       *seed,
		MoveEvery:  *moveEvery,
		MoveLength: *moveLength,
		MoveAmp:    *moveAmp,
	}, os.Stdout)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	fmt.Println()
	if report.CalibratedAt < 0 {
		fmt.Printf("calibration did not complete in %d ticks (%d restarts)\n", report.Ticks, report.Restarts)
		os.Exit(1)
	}
	fmt.Printf("calibrated at tick %d after %d restarts, zero offset %v\n",
		report.CalibratedAt, report.Restarts, report.ZeroOffset)
	fmt.Printf("analysed %d settled samples\n", report.SamplesAnalysed)
	for axis, name := range []string{"x", "y", "z"} {
		fmt.Printf("  %s: raw stddev %7.2f  filtered stddev %7.2f  filtered mean %7.2f\n",
			name, report.RawStdDev[axis], report.FilteredStdDev[axis], report.FilteredMean[axis])
	}
}
