package logger

import (
	"os"
	"path/filepath"
	"testing"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New(Options{Level: "debug"}).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New(Options{Level: "loud"}).GetLevel())
}

func TestNewFormatters(t *testing.T) {
	_, ok := New(Options{Format: "json"}).Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)

	_, ok = New(Options{}).Formatter.(*formatter.Formatter)
	assert.True(t, ok)
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := New(Options{Level: "info", Format: "json", File: path})
	log.Info("scan finished")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scan finished")
}
