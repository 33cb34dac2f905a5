package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/DjordjeVuckovic/news-scout/internal/ingest"
	"github.com/DjordjeVuckovic/news-scout/internal/scheduler"
	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML file describing what scheduled runs
// ingest and when they fire. Every field has a sensible default, so the
// file only needs to state what differs.
type FileConfig struct {
	Schedule struct {
		Timezone string   `yaml:"timezone"`
		Times    []string `yaml:"times"`
	} `yaml:"schedule"`
	Ingestion struct {
		Sources        []string `yaml:"sources"`
		LimitPerSource int      `yaml:"limitPerSource"`
		Category       string   `yaml:"category"`
	} `yaml:"ingestion"`
}

type ConfigLoader struct {
	reader io.Reader
}

func NewConfigLoader(reader io.Reader) *ConfigLoader {
	return &ConfigLoader{
		reader: reader,
	}
}

func (cl *ConfigLoader) Load() (*FileConfig, error) {
	decoder := yaml.NewDecoder(cl.reader)
	var cfg FileConfig
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode pipeline config: %w", err)
	}
	return &cfg, nil
}

// SchedulerConfig resolves the schedule section, falling back to the
// default times and timezone for anything unset.
func (fc *FileConfig) SchedulerConfig() (scheduler.Config, error) {
	cfg := scheduler.Config{}

	tz := fc.Schedule.Timezone
	if tz == "" {
		tz = scheduler.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return scheduler.Config{}, fmt.Errorf("load schedule timezone: %w", err)
	}
	cfg.Location = loc

	for _, raw := range fc.Schedule.Times {
		t, err := scheduler.ParseTimeOfDay(raw)
		if err != nil {
			return scheduler.Config{}, err
		}
		cfg.Times = append(cfg.Times, t)
	}
	return cfg, nil
}

// Params resolves the ingestion section into run parameters.
func (fc *FileConfig) Params() ingest.Params {
	return ingest.Params{
		Sources:        fc.Ingestion.Sources,
		LimitPerSource: fc.Ingestion.LimitPerSource,
		Category:       fc.Ingestion.Category,
	}
}
