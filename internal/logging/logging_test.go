package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-jwt-grant/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testConfig struct{ level, format string }

func (c testConfig) GetLogLevel() string  { return c.level }
func (c testConfig) GetLogFormat() string { return c.format }

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(&buf, "json")
		logger.Info().Str("client_id", "some-uid").Msg("issued")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		require.Equal(t, "issued", line["message"])
		require.Equal(t, "some-uid", line["client_id"])
		require.Contains(t, line, "time")
	})

	t.Run("console", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(&buf, "console")
		logger.Info().Msg("issued")
		require.Contains(t, buf.String(), "issued")
		require.False(t, json.Valid(buf.Bytes()))
	})
}

func TestInit(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	logging.Init(testConfig{level: "DEBUG", format: "json"})
	require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	logging.Init(testConfig{level: "nonsense", format: "console"})
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
