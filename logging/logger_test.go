package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryWritesLokiEvent(t *testing.T) {
	var events, errs, loki bytes.Buffer
	logger := NewWithWriters("sos-test", &events, &errs, &loki)

	ctx, alertID := WithAlert(context.Background(), "button")
	logger.Delivery(ctx, "SMS", 20*time.Millisecond, nil)
	logger.Delivery(ctx, "Server", 5*time.Millisecond, errors.New("status 503"))

	lines := strings.Split(strings.TrimSpace(loki.String()), "\n")
	require.Len(t, lines, 2)

	var ok, failed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ok))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failed))

	assert.Equal(t, alertID, ok["alert_id"])
	assert.Equal(t, "button", ok["trigger"])
	assert.Equal(t, "SMS", ok["channel"])
	assert.Equal(t, true, ok["success"])
	assert.Equal(t, "INFO", ok["level"])

	assert.Equal(t, false, failed["success"])
	assert.Equal(t, "status 503", failed["error"])
	assert.Equal(t, "ERROR", failed["level"])

	assert.Contains(t, events.String(), "[ALERT:"+alertID+"]")
	assert.Contains(t, events.String(), "failed: status 503")
}

func TestErrorIncludesAlertMetadata(t *testing.T) {
	var events, errs, loki bytes.Buffer
	logger := NewWithWriters("sos-test", &events, &errs, &loki)

	ctx, alertID := WithAlert(context.Background(), "widget")
	logger.Error(ctx, errors.New("recorder busy"))

	out := errs.String()
	assert.Contains(t, out, "recorder busy")
	assert.Contains(t, out, "ALERT  : "+alertID+" (widget)")
	assert.NotContains(t, out, "REQ    :")
}

func TestErrorWithoutMetadata(t *testing.T) {
	var events, errs, loki bytes.Buffer
	logger := NewWithWriters("sos-test", &events, &errs, &loki)

	logger.Error(context.Background(), errors.New("plain failure"))
	assert.Contains(t, errs.String(), "[ERROR] err=plain failure")

	logger.Error(context.Background(), nil)
	assert.Equal(t, 1, strings.Count(errs.String(), "[ERROR]"))
}

func TestLogRequestUsesStatusLevel(t *testing.T) {
	var events, errs, loki bytes.Buffer
	logger := NewWithWriters("sos-test", &events, &errs, &loki)

	ctx := WithMeta(context.Background(), Meta{RequestID: "req-1", Method: "POST", Path: "/api/sos", IP: "127.0.0.1"})
	logger.LogRequest(ctx, 503, time.Millisecond)

	var ev map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(loki.Bytes()), &ev))
	assert.Equal(t, "CRITICAL", ev["level"])
	assert.Equal(t, "req-1", ev["request_id"])
	assert.Nil(t, ev["errors"])
	assert.Contains(t, events.String(), "[REQ:req-1]")
}

func TestNewWritesFiles(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(&Config{
		ServiceName: "sos-files",
		LogPath:     dir,
		FilePrefix:  "app",
		EnableFile:  true,
		EnableLoki:  true,
	})
	require.NoError(t, err)

	logger.Info("started")
	logger.ErrorLoki(context.Background(), LevelCritical, errors.New("boom"))
	require.NoError(t, logger.Close())

	events, err := os.ReadFile(filepath.Join(dir, "app.events.log"))
	require.NoError(t, err)
	assert.Contains(t, string(events), "[INFO] started")

	loki, err := os.ReadFile(filepath.Join(dir, "app.loki.log"))
	require.NoError(t, err)
	assert.Contains(t, string(loki), `"service":"sos-files"`)
	assert.Contains(t, string(loki), `"error":"boom"`)
}

func TestDailyWriterPrunesOldFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "sos.events")

	now := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)
	for _, day := range []string{"2026-03-01", "2026-03-15", "2026-03-19"} {
		require.NoError(t, os.WriteFile(base+"-"+day+".log", []byte("x\n"), 0644))
	}

	w := &DailyWriter{basePath: base, enableRotation: true, retentionDays: 7, now: func() time.Time { return now }}
	_, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)
	defer w.Close()

	assert.NoFileExists(t, base+"-2026-03-01.log")
	assert.FileExists(t, base+"-2026-03-15.log")
	assert.FileExists(t, base+"-2026-03-19.log")
	assert.Equal(t, base+"-2026-03-20.log", w.Filename())

	now = now.AddDate(0, 0, 1)
	_, err = w.Write([]byte("next day\n"))
	require.NoError(t, err)
	assert.Equal(t, base+"-2026-03-21.log", w.Filename())
}

func TestWithAlertKeepsRequestMeta(t *testing.T) {
	ctx := WithMeta(context.Background(), Meta{RequestID: "req-9", Method: "POST", Path: "/api/sos"})
	ctx, alertID := WithAlert(ctx, "button")

	meta, ok := FromContext(ctx)
	require.True(t, ok)
	assert.True(t, meta.HasRequest())
	assert.True(t, meta.HasAlert())
	assert.Equal(t, "req-9", meta.RequestID)
	assert.Equal(t, alertID, meta.AlertID)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
