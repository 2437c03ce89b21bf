package logging

import (
	"context"
	"encoding/json"
	"io"
	"path"
	"runtime"
	"strings"
	"time"
)

func baseEvent(meta Meta, service, level string) map[string]interface{} {
	ev := map[string]interface{}{
		"ts":      time.Now().Format(time.RFC3339),
		"level":   strings.ToUpper(level),
		"service": service,
	}
	if meta.HasRequest() {
		ev["request_id"] = meta.RequestID
		ev["http"] = map[string]string{
			"method": meta.Method,
			"path":   meta.Path,
			"ip":     meta.IP,
			"ua":     meta.UserAgent,
		}
	}
	if meta.HasAlert() {
		ev["alert_id"] = meta.AlertID
		ev["trigger"] = meta.Trigger
	}
	return ev
}

func writeEvent(writer io.Writer, ev map[string]interface{}) {
	if writer == nil {
		return
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	writer.Write(append(b, '\n'))
}

// LogLoki writes one request event. errors is null when err is nil.
func LogLoki(ctx context.Context, service, level string, statusCode int, latency time.Duration, err error, writer io.Writer) {
	meta, _ := FromContext(ctx)
	ev := baseEvent(meta, service, level)
	ev["status"] = statusCode
	ev["latency_ms"] = latency.Milliseconds()
	if err != nil {
		ev["errors"] = map[string]string{"message": err.Error()}
	} else {
		ev["errors"] = nil
	}
	writeEvent(writer, ev)
}

// LogErrorLoki logs an error in JSON format suitable for Loki
func LogErrorLoki(ctx context.Context, service string, level string, err error, writer io.Writer) {
	if err == nil {
		return
	}

	meta, _ := FromContext(ctx)
	_, file, line, _ := runtime.Caller(2)

	ev := baseEvent(meta, service, level)
	ev["error"] = err.Error()
	ev["source"] = map[string]interface{}{
		"file": path.Base(file),
		"line": line,
	}
	ev["stack"] = stackFrames(3, 6)

	writeEvent(writer, ev)
}

// LogDeliveryLoki writes one channel attempt event.
func LogDeliveryLoki(ctx context.Context, service, level, channel string, latency time.Duration, err error, writer io.Writer) {
	meta, _ := FromContext(ctx)
	ev := baseEvent(meta, service, level)
	ev["channel"] = channel
	ev["latency_ms"] = latency.Milliseconds()
	ev["success"] = err == nil
	if err != nil {
		ev["error"] = err.Error()
	}
	writeEvent(writer, ev)
}
