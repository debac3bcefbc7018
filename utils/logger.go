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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

type Logger = logrus.Logger

const defaultTimestampFormat = "2006-01-02 15:04:05.000"

// LogOptions configures every logger created by NewLogger. Loggers created
// before Configure pick up the new level but keep their formatter.
type LogOptions struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"` // text or json
	FileEnabled bool   `mapstructure:"file_enabled"`
	FileDir     string `mapstructure:"file_dir"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

var (
	registryMu sync.RWMutex
	registry   = map[string]*logrus.Logger{}
	options    = LogOptions{
		Level:       EnvDefaultString("LOG_LEVEL", "info"),
		Format:      EnvDefaultString("CONSOLE_LOG_FORMAT", "text"),
		FileEnabled: EnvDefaultBool("FILE_LOG_ENABLED", false),
		FileDir:     EnvDefaultString("FILE_LOG_DIR", "logs"),
		MaxAgeDays:  7,
	}
)

// Configure replaces the logging options and re-levels registered loggers.
func Configure(opts LogOptions) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if opts.FileDir == "" {
		opts.FileDir = "logs"
	}
	options = opts
	lvl := ParseLogLevel(opts.Level)
	for _, l := range registry {
		l.SetLevel(lvl)
	}
}

// NewLogger returns the logger registered under name, creating it on first
// use.
func NewLogger(name string) *logrus.Logger {
	registryMu.Lock()
	defer registryMu.Unlock()
	if l, ok := registry[name]; ok {
		return l
	}

	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(ParseLogLevel(options.Level))
	l.SetFormatter(newFormatter(name, options.Format, true))
	if options.FileEnabled {
		l.AddHook(newDailyFileHook(name, options.FileDir, options.MaxAgeDays))
	}
	registry[name] = l
	return l
}

// SetLoggerLevel changes the level of one registered logger.
func SetLoggerLevel(name string, level string) bool {
	registryMu.RLock()
	l, ok := registry[name]
	registryMu.RUnlock()
	if ok {
		l.SetLevel(ParseLogLevel(level))
	}
	return ok
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

func newFormatter(name, format string, console bool) logrus.Formatter {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return &JSONLogFormatter{LoggerName: name}
	}
	return &Log4jFormatter{LoggerName: name, Color: console, NameWidth: 10}
}

// Log4jFormatter renders "time LEVEL pid --- [name] : message k=v".
type Log4jFormatter struct {
	LoggerName      string
	TimestampFormat string
	Color           bool
	NameWidth       int
}

var levelColors = map[logrus.Level]*color.Color{
	logrus.TraceLevel: color.New(color.FgHiBlack),
	logrus.DebugLevel: color.New(color.FgBlue),
	logrus.InfoLevel:  color.New(color.FgGreen),
	logrus.WarnLevel:  color.New(color.FgYellow),
	logrus.ErrorLevel: color.New(color.FgRed),
	logrus.FatalLevel: color.New(color.FgHiRed, color.Bold),
	logrus.PanicLevel: color.New(color.FgHiRed, color.Bold),
}

func (f *Log4jFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	tsFormat := f.TimestampFormat
	if tsFormat == "" {
		tsFormat = defaultTimestampFormat
	}
	level := fmt.Sprintf("%7s", strings.ToUpper(entry.Level.String()))
	pid := fmt.Sprintf("%-6d", os.Getpid())
	name := fmt.Sprintf("%*s", f.NameWidth, truncate(f.LoggerName, f.NameWidth))
	if f.Color {
		if c, ok := levelColors[entry.Level]; ok {
			level = c.Sprint(level)
		}
		pid = color.MagentaString(pid)
		name = color.CyanString(name)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s %s --- [%s] : %s", entry.Time.Format(tsFormat), level, pid, name, entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		fmt.Fprintf(&buf, " %s=%v", k, entry.Data[k])
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// JSONLogFormatter renders one JSON object per line.
type JSONLogFormatter struct {
	LoggerName      string
	TimestampFormat string
}

func (f *JSONLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	tsFormat := f.TimestampFormat
	if tsFormat == "" {
		tsFormat = defaultTimestampFormat
	}
	rec := struct {
		Time    string                 `json:"time"`
		Level   string                 `json:"level"`
		Logger  string                 `json:"logger"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields,omitempty"`
	}{
		Time:    entry.Time.Format(tsFormat),
		Level:   entry.Level.String(),
		Logger:  f.LoggerName,
		Message: entry.Message,
	}
	if len(entry.Data) > 0 {
		rec.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			rec.Fields[k] = v
		}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// dailyFileHook appends entries to <dir>/<yyyy-mm-dd>/<name>.log and prunes
// day directories older than maxAgeDays.
type dailyFileHook struct {
	name       string
	dir        string
	maxAgeDays int
	formatter  logrus.Formatter

	mu   sync.Mutex
	date string
	file io.WriteCloser
}

func newDailyFileHook(name, dir string, maxAgeDays int) *dailyFileHook {
	return &dailyFileHook{
		name:       name,
		dir:        dir,
		maxAgeDays: maxAgeDays,
		formatter:  newFormatter(name, options.Format, false),
	}
}

func (h *dailyFileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *dailyFileHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.rotate(entry.Time.Format("2006-01-02")); err != nil {
		return err
	}
	_, err = h.file.Write(b)
	return err
}

func (h *dailyFileHook) rotate(date string) error {
	if h.file != nil && h.date == date {
		return nil
	}
	if h.file != nil {
		_ = h.file.Close()
		h.file = nil
	}
	dayDir := filepath.Join(h.dir, date)
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dayDir, h.name+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	h.file, h.date = f, date
	h.prune()
	return nil
}

func (h *dailyFileHook) prune() {
	if h.maxAgeDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -h.maxAgeDays)
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		day, err := time.ParseInLocation("2006-01-02", e.Name(), time.Local)
		if err != nil || !e.IsDir() {
			continue
		}
		if day.Before(cutoff) {
			_ = os.RemoveAll(filepath.Join(h.dir, e.Name()))
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sortedKeys(m logrus.Fields) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return cast.ToBool(v)
	}
	return def
}
