// Package config loads the shared configuration used by the server, the
// Lambda entrypoint, the trainer and the sample generator.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v2"
)

const (
	CasesDriverDocstore = "docstore"
	CasesDriverSQLite   = "sqlite"
)

type Config struct {
	Storage struct {
		ModelBucket      string `yaml:"model_bucket"`
		ModelKey         string `yaml:"model_key"`
		DatasetBucket    string `yaml:"dataset_bucket"`
		DatasetKey       string `yaml:"dataset_key"`
		LocalDatasetPath string `yaml:"local_dataset_path"`
	} `yaml:"storage"`
	Cases struct {
		Driver     string        `yaml:"driver"`
		URL        string        `yaml:"url"`
		SQLitePath string        `yaml:"sqlite_path"`
		CacheSize  int           `yaml:"cache_size"`
		CacheTTL   time.Duration `yaml:"cache_ttl"`
	} `yaml:"cases"`
	Alerts struct {
		Topic string `yaml:"topic"`
	} `yaml:"alerts"`
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
	Training struct {
		C          float64 `yaml:"c"`
		Components int     `yaml:"components"`
		TestRatio  float64 `yaml:"test_ratio"`
		Seed       int64   `yaml:"seed"`
		MaxIter    int     `yaml:"max_iter"`
		Tolerance  float64 `yaml:"tolerance"`
		Attempts   uint    `yaml:"attempts"`
		LogDB      string  `yaml:"log_db"`
	} `yaml:"training"`
	Sampler struct {
		DataPath  string `yaml:"data_path"`
		OutputDir string `yaml:"output_dir"`
	} `yaml:"sampler"`
}

// Default returns the configuration of the production deployment.
func Default() Config {
	var c Config
	c.Storage.ModelBucket = "s3://breast-cancer-prediction-models?region=eu-central-1&awssdk=v2"
	c.Storage.ModelKey = "latest_model.json"
	c.Storage.DatasetBucket = "s3://breast-cancer-cleaneddata?region=eu-central-1&awssdk=v2"
	c.Storage.DatasetKey = "clean-data.csv"
	c.Storage.LocalDatasetPath = "data/clean-data.csv"

	c.Cases.Driver = CasesDriverDocstore
	c.Cases.URL = "dynamodb://Patient_Entries?partition_key=id"
	c.Cases.SQLitePath = "data/cases.db"
	c.Cases.CacheSize = 256
	c.Cases.CacheTTL = 5 * time.Minute

	c.Alerts.Topic = "awssns:///arn:aws:sns:eu-central-1:469541406278:MalignantAlerts?region=eu-central-1&awssdk=v2"

	c.Http.Port = 8080
	c.Http.Timeout = 30 * time.Second
	c.Http.AllowedOrigins = []string{"*"}

	c.Log.Level = "info"
	c.Log.Format = "json"
	c.Log.MaxSizeMB = 100
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28

	c.Training.C = 0.1
	c.Training.Components = 2
	c.Training.Seed = 42
	c.Training.MaxIter = 1000
	c.Training.Tolerance = 1e-4
	c.Training.Attempts = 3

	c.Sampler.DataPath = "data/clean-data.csv"
	c.Sampler.OutputDir = "."
	return c
}

// Load overlays the YAML file at path on top of Default, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	config := Default()
	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(&config); err != nil {
				return Config{}, errors.Wrapf(err, "decode config %s", path)
			}
		case !os.IsNotExist(err):
			return Config{}, errors.Wrapf(err, "open config %s", path)
		}
	}
	if err := config.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	overrides := map[string]*string{
		"MODEL_BUCKET_URL":   &c.Storage.ModelBucket,
		"MODEL_KEY":          &c.Storage.ModelKey,
		"DATASET_BUCKET_URL": &c.Storage.DatasetBucket,
		"DATASET_KEY":        &c.Storage.DatasetKey,
		"CASES_DRIVER":       &c.Cases.Driver,
		"CASES_URL":          &c.Cases.URL,
		"ALERT_TOPIC_URL":    &c.Alerts.Topic,
		"LOG_LEVEL":          &c.Log.Level,
	}
	for name, field := range overrides {
		if value := getenv(name); value != "" {
			*field = value
		}
	}
	if value := getenv("HTTP_PORT"); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "invalid HTTP_PORT %q", value)
		}
		c.Http.Port = port
	}
	return nil
}

func (c Config) Validate() error {
	if c.Storage.ModelBucket == "" || c.Storage.ModelKey == "" {
		return errors.New("storage.model_bucket and storage.model_key are required")
	}
	switch c.Cases.Driver {
	case CasesDriverDocstore:
		if c.Cases.URL == "" {
			return errors.New("cases.url is required for the docstore driver")
		}
	case CasesDriverSQLite:
		if c.Cases.SQLitePath == "" {
			return errors.New("cases.sqlite_path is required for the sqlite driver")
		}
	default:
		return errors.Newf("unknown cases driver %q", c.Cases.Driver)
	}
	if c.Http.Port <= 0 {
		return errors.Newf("invalid http port %d", c.Http.Port)
	}
	if c.Training.TestRatio < 0 || c.Training.TestRatio >= 1 {
		return errors.Newf("training.test_ratio must be in [0,1), got %v", c.Training.TestRatio)
	}
	if c.Training.C <= 0 {
		return errors.Newf("training.c must be positive, got %v", c.Training.C)
	}
	if c.Training.Components < 1 {
		return errors.Newf("training.components must be at least 1, got %d", c.Training.Components)
	}
	return nil
}
