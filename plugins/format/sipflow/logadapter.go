package sipflow

import (
	gosiplog "github.com/ghettovoice/gosip/log"
	"github.com/sirupsen/logrus"
)

// loggerAdapter satisfies gosip's log.Logger interface over logrus,
// ported from plugins/reporter/skywalkingtracing/log.go's LoggerAdapter.
type loggerAdapter struct {
	entry *logrus.Entry
}

func newLoggerAdapter() *loggerAdapter {
	return &loggerAdapter{entry: logrus.NewEntry(logrus.StandardLogger())}
}

func (la *loggerAdapter) Fields() gosiplog.Fields { return gosiplog.Fields{} }

func (la *loggerAdapter) WithFields(fields map[string]interface{}) gosiplog.Logger {
	return &loggerAdapter{entry: la.entry.WithFields(fields)}
}

func (la *loggerAdapter) Prefix() string                            { return "" }
func (la *loggerAdapter) WithPrefix(prefix string) gosiplog.Logger   { return la }
func (la *loggerAdapter) Print(args ...interface{})                 { la.entry.Print(args...) }
func (la *loggerAdapter) Printf(format string, args ...interface{}) { la.entry.Printf(format, args...) }
func (la *loggerAdapter) Trace(args ...interface{})                 { la.entry.Trace(args...) }
func (la *loggerAdapter) Tracef(format string, args ...interface{}) { la.entry.Tracef(format, args...) }
func (la *loggerAdapter) Debug(args ...interface{})                 { la.entry.Debug(args...) }
func (la *loggerAdapter) Debugf(format string, args ...interface{}) { la.entry.Debugf(format, args...) }
func (la *loggerAdapter) Info(args ...interface{})                  { la.entry.Info(args...) }
func (la *loggerAdapter) Infof(format string, args ...interface{})  { la.entry.Infof(format, args...) }
func (la *loggerAdapter) Warn(args ...interface{})                  { la.entry.Warn(args...) }
func (la *loggerAdapter) Warnf(format string, args ...interface{})  { la.entry.Warnf(format, args...) }
func (la *loggerAdapter) Error(args ...interface{})                 { la.entry.Error(args...) }
func (la *loggerAdapter) Errorf(format string, args ...interface{}) { la.entry.Errorf(format, args...) }
func (la *loggerAdapter) Fatal(args ...interface{})                 { la.entry.Fatal(args...) }
func (la *loggerAdapter) Fatalf(format string, args ...interface{}) { la.entry.Fatalf(format, args...) }
func (la *loggerAdapter) Panic(args ...interface{})                 { la.entry.Panic(args...) }
func (la *loggerAdapter) Panicf(format string, args ...interface{}) { la.entry.Panicf(format, args...) }
func (la *loggerAdapter) SetLevel(level uint32)                     {}

var _ gosiplog.Logger = (*loggerAdapter)(nil)
