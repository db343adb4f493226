package logrus_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/concierge/internal/log"
	loglogrus "github.com/fentz26/concierge/internal/log/logrus"
)

func TestLoggerLevels(t *testing.T) {
	tests := map[string]struct {
		level  log.Level
		logFn  func(l log.Logger)
		expOut bool
	}{
		"Info logs at info level": {
			level:  log.LevelInfo,
			logFn:  func(l log.Logger) { l.Infof("hello %s", "world") },
			expOut: true,
		},
		"Debug is dropped at info level": {
			level:  log.LevelInfo,
			logFn:  func(l log.Logger) { l.Debugf("hidden") },
			expOut: false,
		},
		"Warning is dropped at error level": {
			level:  log.LevelError,
			logFn:  func(l log.Logger) { l.Warningf("hidden") },
			expOut: false,
		},
		"Debug logs at debug level": {
			level:  log.LevelDebug,
			logFn:  func(l log.Logger) { l.Debugf("visible") },
			expOut: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			l := loglogrus.New(loglogrus.Options{Out: &buf, Level: test.level, JSON: true})
			test.logFn(l)
			assert.Equal(t, test.expOut, buf.Len() > 0)
		})
	}
}

func TestLoggerWithValues(t *testing.T) {
	var buf bytes.Buffer
	l := loglogrus.New(loglogrus.Options{Out: &buf, Level: log.LevelInfo, JSON: true})

	l.WithValues(log.Kv{"svc": "test"}).Infof("with values")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test", entry["svc"])
	assert.Equal(t, "with values", entry["msg"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.LevelDebug, log.ParseLevel("DEBUG"))
	assert.Equal(t, log.LevelWarn, log.ParseLevel("warning"))
	assert.Equal(t, log.LevelError, log.ParseLevel("error"))
	assert.Equal(t, log.LevelInfo, log.ParseLevel("verbose"))
	assert.Equal(t, log.LevelInfo, log.ParseLevel(""))
}
