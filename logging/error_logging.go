package logging

import (
	"context"
	"fmt"
	"log"
	"path"
	"runtime"
	"strings"
	"time"
)

// LogError logs an error with detailed context information
func LogError(ctx context.Context, err error, errorLogger *log.Logger) {
	if err == nil {
		return
	}

	file := "unknown"
	line := 0

	if _, f, l, ok := runtime.Caller(2); ok {
		file = path.Base(f)
		line = l
	}

	meta, ok := FromContext(ctx)
	if !ok {
		errorLogger.Printf("[ERROR] err=%v (%s:%d)", err, file, line)
		return
	}

	ts := time.Now().Format("15:04:05")
	sep := fmt.Sprintf(
		"==============================ERROR[%s]==================================",
		ts,
	)

	errorLogger.Printf("[%s]", "ERROR")
	printRaw(errorLogger, sep)

	var b strings.Builder
	fmt.Fprintf(&b, "ERROR  : %v\n", err)
	if meta.HasAlert() {
		fmt.Fprintf(&b, "ALERT  : %s (%s)\n", meta.AlertID, defaultIfEmpty(meta.Trigger, "unknown"))
	}
	if meta.HasRequest() {
		fmt.Fprintf(&b, "REQ    : %s\n", meta.RequestID)
		fmt.Fprintf(&b, "HTTP   : %s %s (%s)\n", meta.Method, meta.Path, meta.IP)
		fmt.Fprintf(&b, "UA     : %s\n", meta.UserAgent)
	}
	fmt.Fprintf(&b, "FROM   : %s:%d\n", file, line)
	fmt.Fprintf(&b, "STACK  :\n%s", prettyStackList(3, 6))

	printRaw(errorLogger, b.String())
	printRaw(errorLogger, "\n"+sep)
}

// printRaw prints a message without timestamp/file info
func printRaw(l *log.Logger, s string) {
	oldFlags := l.Flags()
	l.SetFlags(0)
	l.Println(s)
	l.SetFlags(oldFlags)
}

// prettyStackList formats stack trace for readable output
func prettyStackList(skip, max int) string {
	var b strings.Builder

	for _, frame := range callerFrames(skip+1, max) {
		b.WriteString(fmt.Sprintf("- %-28s %s\n", frame.location, frame.function))
	}

	return strings.TrimRight(b.String(), "\n")
}

type frame struct {
	location string
	function string
}

func callerFrames(skip, max int) []frame {
	var frames []frame

	for i := skip; i < skip+max; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		name := "unknown"
		if fn != nil {
			name = path.Base(fn.Name())
		}

		frames = append(frames, frame{
			location: fmt.Sprintf("%s:%d", path.Base(file), line),
			function: name,
		})
	}

	return frames
}

// stackFrames returns stack trace as string slice
func stackFrames(skip, max int) []string {
	var out []string
	for _, f := range callerFrames(skip+1, max) {
		out = append(out, f.location+" "+f.function)
	}
	return out
}

func defaultIfEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
