package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const LOG_BUFFER_SIZE = 1000

var ErrLogNotInitialized = errors.New("log object is not initialized yet")

const (
	LOG_LEVEL_ERROR = iota + 1
	LOG_LEVEL_WARN
	LOG_LEVEL_INFO
	LOG_LEVEL_DEBUG
)

type MetricsLogger struct {
	mu                sync.RWMutex
	logBuffer         chan LeveledLogger
	handle            *os.File
	wg                *sync.WaitGroup
	loggerInitialized bool
	level             int
	zapLogger         *zap.Logger
}

type LeveledLogger struct {
	level  int
	logMsg string
}

// Init opens logDir/logFileName and starts the writer goroutine. level is one of LOG_LEVEL_*.
func (m *MetricsLogger) Init(logDir, logFileName string, level int, rewrite bool) error {

	var err error

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loggerInitialized {
		return nil
	}

	CheckAndCreateLogFolder(logDir)

	m.wg = new(sync.WaitGroup)
	m.logBuffer = make(chan LeveledLogger, LOG_BUFFER_SIZE)
	m.level = level

	flags := os.O_RDWR | os.O_CREATE | os.O_APPEND
	if rewrite {
		flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	}
	m.handle, err = os.OpenFile(filepath.Join(logDir, logFileName), flags, 0666)
	if err != nil {
		return err
	}

	m.zapLoggerInit()

	m.wg.Add(1)
	go m.logWritter()

	m.loggerInitialized = true
	return nil
}

func (m *MetricsLogger) zapLoggerInit() {

	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder

	config.EncodeLevel = zapcore.CapitalLevelEncoder //To Print level in Uppercase.
	fileEncoder := zapcore.NewConsoleEncoder(config) //To Print Lines in non json format.

	writer := zapcore.AddSync(m.handle)

	core := zapcore.NewTee(
		zapcore.NewCore(fileEncoder, writer, ZapLevel(m.level)),
	)
	m.zapLogger = zap.New(core)
}

// ZapLevel maps a LOG_LEVEL_* value to its zap level. Unknown values map to info.
func ZapLevel(level int) zapcore.Level {
	switch level {
	case LOG_LEVEL_ERROR:
		return zapcore.ErrorLevel
	case LOG_LEVEL_WARN:
		return zapcore.WarnLevel
	case LOG_LEVEL_DEBUG:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLogLevel accepts debug, info, warn or error (case-insensitive).
func ParseLogLevel(level string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return LOG_LEVEL_ERROR, nil
	case "warn", "warning":
		return LOG_LEVEL_WARN, nil
	case "info", "":
		return LOG_LEVEL_INFO, nil
	case "debug":
		return LOG_LEVEL_DEBUG, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

func (m *MetricsLogger) logWritter() {
	for logdata := range m.logBuffer {
		switch logdata.level {
		case LOG_LEVEL_ERROR:
			m.zapLogger.Error(logdata.logMsg)
		case LOG_LEVEL_WARN:
			m.zapLogger.Warn(logdata.logMsg)
		case LOG_LEVEL_INFO:
			m.zapLogger.Info(logdata.logMsg)
		case LOG_LEVEL_DEBUG:
			m.zapLogger.Debug(logdata.logMsg)
		}
	}
	_ = m.zapLogger.Sync()
	m.wg.Done()
}

// LogEvent queues a message. With a single argument the level is info; otherwise a leading
// LOG_LEVEL_* int selects the level and the remaining arguments form the message.
func (m *MetricsLogger) LogEvent(v ...interface{}) error {
	level, msg := formatEvent(v...)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.loggerInitialized {
		return ErrLogNotInitialized
	}
	m.logBuffer <- LeveledLogger{level, msg}
	return nil
}

func formatEvent(v ...interface{}) (int, string) {
	switch {
	case len(v) == 0:
		return LOG_LEVEL_INFO, ""
	case len(v) == 1:
		return LOG_LEVEL_INFO, fmt.Sprint(v[0])
	}

	level, ok := v[0].(int)
	if ok && level >= LOG_LEVEL_ERROR && level <= LOG_LEVEL_DEBUG {
		msg := fmt.Sprintf("%v", v[1:])
		return level, msg[1 : len(msg)-1]
	}
	msg := fmt.Sprintf("%v", v)
	return LOG_LEVEL_INFO, msg[1 : len(msg)-1]
}

// DeInit drains pending messages and closes the log file.
func (m *MetricsLogger) DeInit() {

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loggerInitialized {
		return
	}
	m.loggerInitialized = false
	close(m.logBuffer)
	m.wg.Wait()

	m.handle.Close()
}

func CheckAndCreateLogFolder(FolderNameWithPath string) {
	_, err := os.Stat(FolderNameWithPath)

	if os.IsNotExist(err) {
		err := os.MkdirAll(FolderNameWithPath, 0755)
		if err != nil {
			fmt.Println("Failed to create the log folder and Mkdir err :: ", err)
		}
	}
}
