package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// lineFormatter печатает строки вида "[2006-01-02 15:04:05] INFO: сообщение"
type lineFormatter struct{}

func (lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(entry.Level.String())
	if entry.Level == logrus.WarnLevel {
		level = "WARN"
	}
	line := fmt.Sprintf("[%s] %s: %s\n", entry.Time.Format("2006-01-02 15:04:05"), level, entry.Message)
	return []byte(line), nil
}

// LoggerManager пишет диагностику в stdout и, если задан путь, в файл
type LoggerManager struct {
	file   *os.File
	logger *logrus.Logger
}

// NewLoggerManager создает новый экземпляр LoggerManager.
// Debug-сообщения выводятся только при verbose.
func NewLoggerManager(out io.Writer, logFilePath string, verbose bool) (*LoggerManager, error) {
	lm := &LoggerManager{logger: logrus.New()}
	lm.logger.SetFormatter(lineFormatter{})
	lm.logger.SetLevel(logrus.InfoLevel)
	if verbose {
		lm.logger.SetLevel(logrus.DebugLevel)
	}

	if logFilePath == "" {
		lm.logger.SetOutput(out)
		return lm, nil
	}

	if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	lm.file = file
	lm.logger.SetOutput(io.MultiWriter(out, file))
	return lm, nil
}

// Discard возвращает логгер, который ничего не пишет
func Discard() *LoggerManager {
	lm, _ := NewLoggerManager(io.Discard, "", false)
	return lm
}

// Close закрывает файл логов
func (l *LoggerManager) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *LoggerManager) Debug(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *LoggerManager) Info(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

func (l *LoggerManager) Warn(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *LoggerManager) Error(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// LogError записывает ошибку с дополнительной информацией
func (l *LoggerManager) LogError(err error, context string) {
	if err != nil {
		l.Error("%s: %v", context, err)
	}
}

// DebugEnabled позволяет не собирать дорогие сообщения впустую
func (l *LoggerManager) DebugEnabled() bool {
	return l.logger.IsLevelEnabled(logrus.DebugLevel)
}
