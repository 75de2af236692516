package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"cancerscreen/config"
	"cancerscreen/logging"
	"cancerscreen/sampler"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file")
	dataPath := flag.String("data", "", "labeled dataset (id, diagnosis, features)")
	outputDir := flag.String("out", "", "directory for sample_patient_<id>.csv files")
	seed := flag.Int64("seed", 0, "random seed, 0 picks one from the clock")
	id := flag.String("id", "", "case id; with -diagnosis writes one file and exits")
	diagnosis := flag.String("diagnosis", "", "M or B, used with -id")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dataPath != "" {
		cfg.Sampler.DataPath = *dataPath
	}
	if *outputDir != "" {
		cfg.Sampler.OutputDir = *outputDir
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	logger := logging.Must(logging.Options{Level: cfg.Log.Level, Format: "console"})
	defer logger.Sync()

	fmt.Printf("Reading data from: %s\n", cfg.Sampler.DataPath)
	malignant, benign, _, err := sampler.Load(cfg.Sampler.DataPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
	}
	generator, err := sampler.NewGenerator(malignant, benign, cfg.Sampler.OutputDir, *seed)
	if err != nil {
		fmt.Println(err)
		return
	}
	generator.Logger = logger

	if *id != "" || *diagnosis != "" {
		path, err := generator.Generate(*diagnosis, *id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s case: %s\n", *diagnosis, path)
		return
	}

	if err := generator.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}
