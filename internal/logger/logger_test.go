package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	var buf bytes.Buffer
	Log.SetOutput(&buf)
	defer func() {
		Log.SetOutput(os.Stdout)
		Configure("", "")
	}()

	Configure("warn", "json")
	assert.Equal(t, logrus.WarnLevel, Log.GetLevel())
	Info("hidden")
	assert.Zero(t, buf.Len())

	WithField("port", "5000").Warn("visible")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "5000", entry["port"])

	Configure("nonsense", "text")
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, Log.Formatter)
}
