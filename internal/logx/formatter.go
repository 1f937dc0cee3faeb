// Package logx sets up the process-wide logger: a pattern-based
// logrus.Formatter and a fan-out MultiWriter with an optional rotated file
// appender, ported from the teacher's internal/log package (formatter.go,
// log.go, appender.go, appender_file.go) and generalized from that
// package's own Logger interface wrapper to direct logrus use, since this
// repo has no equivalent of the teacher's multi-backend (kafka-appender)
// requirement to abstract over.
package logx

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultPattern mirrors the teacher's own default: time, level, caller,
// fields, then message.
const DefaultPattern = "%time [%level] %caller %field%msg\n"

// PatternFormatter renders a logrus.Entry by substituting %time, %level,
// %field, %msg, %caller, %func, and %goroutine placeholders in Pattern.
type PatternFormatter struct {
	Pattern  string
	TimeFmt  string
}

func (f *PatternFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	pattern := f.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	timeFmt := f.TimeFmt
	if timeFmt == "" {
		timeFmt = "2006-01-02T15:04:05.000Z07:00"
	}
	output := pattern
	output = strings.Replace(output, "%time", entry.Time.Format(timeFmt), 1)
	output = strings.Replace(output, "%level", entry.Level.String(), 1)
	output = strings.Replace(output, "%field", buildFields(entry), 1)
	output = strings.Replace(output, "%msg", entry.Message, 1)
	output = strings.Replace(output, "%caller", caller(entry), 1)
	output = strings.Replace(output, "%func", funcName(entry), 1)
	output = strings.Replace(output, "%goroutine", goroutineID(), 1)
	return []byte(output), nil
}

func caller(entry *logrus.Entry) string {
	if !entry.HasCaller() {
		return "unknown"
	}
	file := entry.Caller.File
	if idx := strings.LastIndex(file, "/"); idx != -1 && idx+1 < len(file) {
		file = file[idx+1:]
	}
	pkg := ""
	if entry.Caller.Function != "" {
		parts := strings.Split(entry.Caller.Function, ".")
		pkgParts := strings.Split(parts[0], "/")
		pkg = pkgParts[len(pkgParts)-1]
	}
	return fmt.Sprintf("%s/%s:%d", pkg, file, entry.Caller.Line)
}

func funcName(entry *logrus.Entry) string {
	if !entry.HasCaller() {
		return "unknown"
	}
	name := entry.Caller.Function
	if idx := strings.LastIndex(name, "."); idx != -1 && idx+1 < len(name) {
		return name[idx+1:]
	}
	return name
}

func goroutineID() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	stack := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	fields := strings.Fields(stack)
	if len(fields) > 0 {
		return fields[0]
	}
	return "unknown"
}

func buildFields(entry *logrus.Entry) string {
	if len(entry.Data) == 0 {
		return ""
	}
	parts := make([]string, 0, len(entry.Data))
	for k, v := range entry.Data {
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		parts = append(parts, k+"="+s)
	}
	return strings.Join(parts, ",") + " "
}

var _ logrus.Formatter = (*PatternFormatter)(nil)
