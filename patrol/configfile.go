package patrol

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML shape of the docpatrol configuration file. It maps
// onto Config plus the binary-level settings (listen address, db path).
type FileConfig struct {
	Listen string `yaml:"listen"`
	DBPath string `yaml:"db_path"`

	Fetch struct {
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		MaxBytes       int64  `yaml:"max_bytes"`
		MaxConcurrency int    `yaml:"max_concurrency"`
		UserAgent      string `yaml:"user_agent"`
	} `yaml:"fetch"`

	Scheduler struct {
		CheckIntervalSeconds int `yaml:"check_interval_seconds"`
		BatchLimit           int `yaml:"batch_limit"`
	} `yaml:"scheduler"`

	Extractor struct {
		MaxExcerptBytes int     `yaml:"max_excerpt_bytes"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
		Temperature     float64 `yaml:"temperature"`
	} `yaml:"extractor"`

	LLM struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"llm"`

	QueueVisibilitySeconds int `yaml:"queue_visibility_seconds"`
	WorkerPollSeconds      int `yaml:"worker_poll_seconds"`
	FastPathPriority       int `yaml:"fast_path_priority"`
	MaxSources             int `yaml:"max_sources"`
}

// DefaultFileConfig returns the binary-level defaults.
func DefaultFileConfig() *FileConfig {
	fc := &FileConfig{
		Listen: ":8090",
		DBPath: "docpatrol.db",
	}
	return fc
}

// LoadConfigFile reads and parses a YAML config file over the defaults.
func LoadConfigFile(path string) (*FileConfig, error) {
	fc := DefaultFileConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// ServiceConfig converts the file shape into the service Config.
func (fc *FileConfig) ServiceConfig() *Config {
	cfg := defaultConfig()
	cfg.Fetch.Timeout = time.Duration(fc.Fetch.TimeoutSeconds) * time.Second
	cfg.Fetch.MaxBytes = fc.Fetch.MaxBytes
	cfg.Fetch.MaxConcurrency = fc.Fetch.MaxConcurrency
	cfg.Fetch.UserAgent = fc.Fetch.UserAgent
	cfg.Scheduler.CheckInterval = time.Duration(fc.Scheduler.CheckIntervalSeconds) * time.Second
	cfg.Scheduler.BatchLimit = fc.Scheduler.BatchLimit
	cfg.Extractor.MaxExcerptBytes = fc.Extractor.MaxExcerptBytes
	cfg.Extractor.Timeout = time.Duration(fc.Extractor.TimeoutSeconds) * time.Second
	cfg.Extractor.Temperature = fc.Extractor.Temperature
	cfg.LLM.BaseURL = fc.LLM.BaseURL
	cfg.LLM.APIKey = fc.LLM.APIKey
	cfg.LLM.Model = fc.LLM.Model
	cfg.QueueVisibility = time.Duration(fc.QueueVisibilitySeconds) * time.Second
	cfg.WorkerPoll = time.Duration(fc.WorkerPollSeconds) * time.Second
	cfg.FastPathPriority = fc.FastPathPriority
	cfg.MaxSources = fc.MaxSources
	return cfg
}
