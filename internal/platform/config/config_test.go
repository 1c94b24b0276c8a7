package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ORG_TIMEZONE", "America/Mexico_City")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "08:00", cfg.Jobs.RemindersAt)
	assert.Equal(t, 6, cfg.Jobs.LogRetentionMonths)
	assert.Equal(t, 30, cfg.Jobs.NotificationRetentionDays)
	assert.Equal(t, 7, cfg.Jobs.ReportWindowDays)
	assert.Equal(t, "notifications", cfg.Kafka.Topic)
	assert.Equal(t, 10*time.Second, cfg.Reminder.CallTimeout)
}

func TestLoadKafkaBrokersFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	valid := func() *Config {
		t.Setenv("CONFIG_PATH", "")
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	t.Run("unknown timezone", func(t *testing.T) {
		cfg := valid()
		cfg.Reminder.Timezone = "Mars/Olympus"
		assert.Error(t, cfg.Validate())
	})
	t.Run("malformed time of day", func(t *testing.T) {
		cfg := valid()
		cfg.Jobs.ReportAt = "25:00"
		assert.Error(t, cfg.Validate())
	})
	t.Run("unknown weekday", func(t *testing.T) {
		cfg := valid()
		cfg.Jobs.CleanupWeekday = "someday"
		assert.Error(t, cfg.Validate())
	})
	t.Run("zero concurrency", func(t *testing.T) {
		cfg := valid()
		cfg.Reminder.Concurrency = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday(" Monday ")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d)
}
