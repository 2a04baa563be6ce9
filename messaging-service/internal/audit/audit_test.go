package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmarket/marketplace/pkg/log"
)

func captureCtx(buf *bytes.Buffer) context.Context {
	return log.WithLogger(context.Background(), zerolog.New(buf))
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogTarget(t *testing.T) {
	var buf bytes.Buffer
	LogTarget(captureCtx(&buf), ActionSendMessage, "u1", "conv-1", "message sent")

	entry := decode(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, log.LogTypeAudit, entry[log.FieldLogType])
	assert.Equal(t, ActionSendMessage, entry[FieldAction])
	assert.Equal(t, "u1", entry[log.FieldUserID])
	assert.Equal(t, "conv-1", entry[FieldTargetID])
	assert.Equal(t, "message sent", entry["message"])
}

func TestLogWithDetail(t *testing.T) {
	var buf bytes.Buffer
	LogWithDetail(captureCtx(&buf), ActionNotificationSkipped, "u2", "msg-1", "disabled", "notification skipped")

	entry := decode(t, &buf)
	assert.Equal(t, "disabled", entry[FieldDetail])
	assert.Equal(t, "msg-1", entry[FieldTargetID])
}

func TestLogFailure(t *testing.T) {
	var buf bytes.Buffer
	LogFailure(captureCtx(&buf), ActionNotificationFailed, "u3", "msg-2", errors.New("smtp down"), "notification failed")

	entry := decode(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "smtp down", entry["error"])
	assert.Equal(t, ActionNotificationFailed, entry[FieldAction])
}

func TestEmptyTargetIsOmitted(t *testing.T) {
	var buf bytes.Buffer
	LogTarget(captureCtx(&buf), ActionUpdatePreference, "u4", "", "preference updated")

	entry := decode(t, &buf)
	_, ok := entry[FieldTargetID]
	assert.False(t, ok)
}

func TestEntriesRespectLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	ctx := log.WithLogger(context.Background(), zerolog.New(&buf).Level(zerolog.WarnLevel))

	LogTarget(ctx, ActionSendMessage, "u1", "conv-1", "message sent")
	assert.Zero(t, buf.Len())

	LogFailure(ctx, ActionNotificationFailed, "u1", "msg-1", errors.New("boom"), "notification failed")
	assert.NotZero(t, buf.Len())
}
