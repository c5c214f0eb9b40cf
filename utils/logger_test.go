/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel(" DEBUG "))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("bogus"))
}

func TestNewLoggerRegistersOnce(t *testing.T) {
	a := NewLogger("REGISTRY_TEST")
	b := NewLogger("REGISTRY_TEST")
	assert.Same(t, a, b)

	assert.True(t, SetLoggerLevel("REGISTRY_TEST", "error"))
	assert.Equal(t, logrus.ErrorLevel, a.GetLevel())
	assert.False(t, SetLoggerLevel("MISSING_LOGGER", "error"))
}

func TestLog4jColorFormatterWritesSortedFields(t *testing.T) {
	f := &Log4jColorFormatter{LoggerName: "SESSION", NameWidth: 10}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "saved",
		Data:    logrus.Fields{"b": 2, "a": 1},
	}
	out, err := f.Format(entry)
	assert.NoError(t, err)
	line := string(out)
	assert.Contains(t, line, "2025-01-02 03:04:05.000")
	assert.Contains(t, line, "saved")
	assert.Less(t, bytes.Index(out, []byte("=1")), bytes.Index(out, []byte("=2")))
	assert.Contains(t, line, faint.Sprint("a")+"=1")
	assert.Contains(t, line, levelColors[logrus.InfoLevel].Sprint("   INFO"))
}

func TestJSONLoggerCarriesPlainMessage(t *testing.T) {
	var buf bytes.Buffer
	ConfigureConsoleWriter(&buf)
	ConfigureConsoleLogFormat("json")
	t.Cleanup(func() {
		ConfigureConsoleWriter(os.Stdout)
		ConfigureConsoleLogFormat("text")
	})

	l := NewLogger("JSON_FORMAT_TEST")
	l.WithField("duration", "3s").Warn("Database slow query detected")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "Database slow query detected", record["message"])
	assert.Equal(t, "JSON_FORMAT_TEST", record["logger"])
	assert.NotContains(t, buf.String(), "\\u001b")
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("UTILS_TEST_BOOL", "true")
	t.Setenv("UTILS_TEST_BAD_BOOL", "nope")
	t.Setenv("UTILS_TEST_DURATION", "15")
	t.Setenv("UTILS_TEST_DURATION_STR", "2m")

	assert.True(t, EnvDefaultBool("UTILS_TEST_BOOL", false))
	assert.True(t, EnvDefaultBool("UTILS_TEST_BAD_BOOL", true))
	assert.Equal(t, "fallback", EnvDefaultString("UTILS_TEST_UNSET", "fallback"))
	assert.Equal(t, 15*time.Second, EnvDefaultDuration("UTILS_TEST_DURATION", time.Second))
	assert.Equal(t, 2*time.Minute, EnvDefaultDuration("UTILS_TEST_DURATION_STR", time.Second))
}
