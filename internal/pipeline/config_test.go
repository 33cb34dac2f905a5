package pipeline

import (
	"strings"
	"testing"

	"github.com/DjordjeVuckovic/news-scout/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
schedule:
  timezone: Pacific/Auckland
  times: ["07:30", "12:30", "21:00"]
ingestion:
  sources: [mock, newsapi]
  limitPerSource: 15
  category: technology
`

func TestConfigLoader_Load(t *testing.T) {
	cfg, err := NewConfigLoader(strings.NewReader(sampleConfig)).Load()
	require.NoError(t, err)

	schedCfg, err := cfg.SchedulerConfig()
	require.NoError(t, err)
	assert.Equal(t, "Pacific/Auckland", schedCfg.Location.String())
	assert.Equal(t, []scheduler.TimeOfDay{
		{Hour: 7, Minute: 30},
		{Hour: 12, Minute: 30},
		{Hour: 21, Minute: 0},
	}, schedCfg.Times)

	params := cfg.Params()
	assert.Equal(t, []string{"mock", "newsapi"}, params.Sources)
	assert.Equal(t, 15, params.LimitPerSource)
	assert.Equal(t, "technology", params.Category)
}

func TestConfigLoader_EmptySectionsFallBack(t *testing.T) {
	cfg, err := NewConfigLoader(strings.NewReader("schedule: {}\ningestion: {}\n")).Load()
	require.NoError(t, err)

	schedCfg, err := cfg.SchedulerConfig()
	require.NoError(t, err)
	assert.Equal(t, scheduler.DefaultTimezone, schedCfg.Location.String())
	assert.Empty(t, schedCfg.Times, "scheduler itself applies the default times")

	params := cfg.Params()
	assert.Empty(t, params.Sources)
	assert.Zero(t, params.LimitPerSource)
}

func TestConfigLoader_Invalid(t *testing.T) {
	_, err := NewConfigLoader(strings.NewReader("[unterminated")).Load()
	assert.Error(t, err)

	cfg, err := NewConfigLoader(strings.NewReader("schedule:\n  times: [\"25:00\"]\n")).Load()
	require.NoError(t, err)
	_, err = cfg.SchedulerConfig()
	assert.Error(t, err)

	cfg, err = NewConfigLoader(strings.NewReader("schedule:\n  timezone: Mars/Olympus\n")).Load()
	require.NoError(t, err)
	_, err = cfg.SchedulerConfig()
	assert.Error(t, err)
}
