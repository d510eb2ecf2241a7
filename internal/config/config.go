package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Root    string   `yaml:"root"`
		Exclude []string `yaml:"exclude"` // directory names skipped while crawling
	} `yaml:"project"`
	Index struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"index"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	var cfg Config

	// 2. Load YAML config; a missing file means defaults only
	file, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// 3. Override with environment variables if present
	if root := os.Getenv("PYSCOPE_ROOT"); root != "" {
		cfg.Project.Root = root
	}
	if db := os.Getenv("PYSCOPE_DB_PATH"); db != "" {
		cfg.Index.DBPath = db
	}
	if level := os.Getenv("PYSCOPE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if cfg.Project.Root == "" {
		cfg.Project.Root = "."
	}
	if cfg.Index.DBPath == "" {
		cfg.Index.DBPath = "pyscope.db"
	}

	return &cfg, nil
}
