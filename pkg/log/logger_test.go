package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bferrors "github.com/YuminosukeSato/badfeatures/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestZerologProvider_Levels(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelInfo)
	logger := p.GetLoggerWithName("dataset")

	logger.Debug("hidden")
	logger.Info("Loaded field", FieldIDKey, 795, FieldRowsKey, 2)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "Loaded field", lines[0]["message"])
	assert.Equal(t, "dataset", lines[0][ComponentKey])
	assert.Equal(t, 795.0, lines[0][FieldIDKey])
	assert.Contains(t, lines[0], "time")

	p.SetLevel(LevelDebug)
	assert.True(t, logger.Enabled(context.Background(), LevelDebug))
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestZerologProvider_ErrorWithStack(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologProvider(&buf, LevelDebug).GetLogger().With(ModelNameKey, "RandomForestClassifier")

	err := bferrors.NewSchemaMismatchError(795, 796, []string{"a"}, []string{"b"})
	logger.Error("Feature names differ", err, OperationKey, OperationAssemble)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	entry := lines[0]
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, err.Error(), entry[ErrAttrKey])
	assert.NotEmpty(t, entry[StacktraceAttrKey])
	assert.Equal(t, OperationAssemble, entry[OperationKey])
	assert.Equal(t, "RandomForestClassifier", entry[ModelNameKey])

	detail, ok := entry[ErrDetailAttrKey].(map[string]interface{})
	require.True(t, ok, "typed errors should carry a structured detail object")
	assert.Equal(t, "SchemaMismatchError", detail["type"])
}

func TestZerologProvider_ErrorWithoutLeadingError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologProvider(&buf, LevelDebug).GetLogger()

	logger.Error("plain failure", ErrorCodeKey, ErrorEmptyData)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], ErrAttrKey)
	assert.Equal(t, ErrorEmptyData, lines[0][ErrorCodeKey])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{"warning", LevelWarn},
		{" error ", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	var vErr *bferrors.ValidationError
	assert.True(t, bferrors.As(err, &vErr))
}

func TestSetupLogger(t *testing.T) {
	prev := Provider()
	defer SetProvider(prev)
	defer bferrors.SetZerologWarnFunc(nil)

	require.NoError(t, SetupLogger("debug", "console"))
	assert.True(t, GetLogger().Enabled(context.Background(), LevelDebug))

	require.NoError(t, SetupLogger("warn", "json"))
	assert.False(t, GetLogger().Enabled(context.Background(), LevelInfo))

	assert.Error(t, SetupLogger("info", "xml"))
	assert.Error(t, SetupLogger("loud", "json"))
}

func TestGlobalProviderSwap(t *testing.T) {
	prev := Provider()
	defer SetProvider(prev)

	p, testLogger := NewTestLoggerProvider(LevelDebug)
	SetProvider(p)

	GetLoggerWithName("forest").Info("Fitting", OperationKey, OperationFit)
	assert.True(t, testLogger.ContainsField(ComponentKey, "forest"))

	SetLevel(LevelError)
	GetLogger().Info("dropped")
	assert.False(t, testLogger.ContainsMessage("dropped"))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "UNKNOWN", Level(3).String())
}
