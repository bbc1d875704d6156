package main

import (
	"encoding/json" // Result serialization
	"flag"          // Command line flags
	"os"            // Output file handling

	"github.com/sirupsen/logrus" // Logrus for structured logging

	"coop_economy/internal/config" // Custom package for configuration
	"coop_economy/internal/sim"    // Simulation runner
)

// Main function to run a batch comparison simulation from the command line
func main() {
	out := flag.String("out", "", "write the result document to this file instead of stdout")
	members := flag.Int("members", 0, "override the number of community members")
	weeks := flag.Int("weeks", 0, "override the number of simulated weeks")
	seed := flag.Int64("seed", 0, "override the randomness seed")
	flag.Parse()

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	params := cfg.Run // Env-configured defaults, then flag overrides
	if *members > 0 {
		params.NumMembers = *members
	}
	if *weeks > 0 {
		params.SimulationWeeks = *weeks
	}
	if *seed != 0 {
		params.Seed = *seed
	}

	result, err := sim.Run(params, cfg.Ledgers)
	if err != nil {
		logrus.Fatalf("simulation run failed: %v", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logrus.Fatalf("failed to encode result: %v", err)
	}

	if *out == "" {
		os.Stdout.Write(data)
		os.Stdout.Write([]byte("\n"))
		return
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logrus.Fatalf("failed to write %s: %v", *out, err)
	}
	logrus.WithFields(logrus.Fields{
		"file":  *out,
		"weeks": len(result.History),
	}).Info("simulation result written")
}
