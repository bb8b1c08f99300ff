package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type Logger interface {
	Log(info *RunInfo)
}

type ZapLogger struct {
	logger *zap.Logger
}

func NewZapLogger(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: logger}
}

func (l *ZapLogger) Log(info *RunInfo) {
	fields := []zap.Field{
		zap.String("run_id", info.RunID),
		zap.String("method", info.Method),
		zap.String("output", info.Output),
		zap.Duration("run_duration", info.RunDuration),
		zap.Int("cache_hits", info.Fetch.CacheHits),
		zap.Int64("bytes_fetched", info.Fetch.BytesFetched),
	}
	for stage, d := range info.Stages {
		fields = append(fields, zap.Duration("stage_"+stage, d))
	}
	if info.Error != "" {
		l.logger.Error("run metrics", append(fields, zap.String("error", info.Error))...)
		return
	}
	l.logger.Info("run metrics", fields...)
}

// MultiLogger hands every record to each of its loggers in turn.
type MultiLogger []Logger

func (l MultiLogger) Log(info *RunInfo) {
	for _, logger := range l {
		logger.Log(info)
	}
}

const defaultMaxLogFileSize = 64 * 1024 * 1024
const defaultMaxLogFiles = 10

// FileLogger appends one JSON record per line to LogPath. Once the file
// reaches MaxLogFileSize it is moved aside as LogPath.N, reusing the
// oldest slot after MaxLogFiles rotations.
type FileLogger struct {
	LogPath        string
	MaxLogFileSize int64
	MaxLogFiles    int
	mu             sync.Mutex
	errLogger      *zap.Logger
}

func NewFileLogger(logPath string, maxLogFileSize int64, maxLogFiles int, errLogger *zap.Logger) *FileLogger {
	if maxLogFileSize <= 0 {
		maxLogFileSize = defaultMaxLogFileSize
	}
	if maxLogFiles <= 0 {
		maxLogFiles = defaultMaxLogFiles
	}
	if errLogger == nil {
		errLogger = zap.NewNop()
	}
	return &FileLogger{
		LogPath:        logPath,
		MaxLogFileSize: maxLogFileSize,
		MaxLogFiles:    maxLogFiles,
		errLogger:      errLogger,
	}
}

func (l *FileLogger) Log(info *RunInfo) {
	if err := l.write(info); err != nil {
		l.errLogger.Warn("FileLogger: write error", zap.String("path", l.LogPath), zap.Error(err))
	}
}

func (l *FileLogger) write(info *RunInfo) error {
	infoStr, err := info.ToJSON()
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.LogPath); dir != "" {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err = l.tryRotateLogFile(); err != nil {
		l.errLogger.Warn("FileLogger: log rotation error", zap.Error(err))
	}

	f, err := os.OpenFile(l.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err = f.WriteString(infoStr); err != nil {
		return err
	}
	return f.Sync()
}

func (l *FileLogger) tryRotateLogFile() error {
	info, err := os.Stat(l.LogPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < l.MaxLogFileSize {
		return nil
	}

	var rotatedLogFilePath string
	for i := 0; i < l.MaxLogFiles; i++ {
		filePath := fmt.Sprintf("%s.%d", l.LogPath, i)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			rotatedLogFilePath = filePath
			break
		}
	}

	if len(rotatedLogFilePath) == 0 {
		rotatedLogFilePath, err = l.oldestRotated()
		if err != nil {
			return err
		}
		err = os.Remove(rotatedLogFilePath)
		if err != nil {
			return err
		}
		l.errLogger.Debug("FileLogger: maximum number of log files reached", zap.String("overwriting", rotatedLogFilePath))
	}

	return os.Rename(l.LogPath, rotatedLogFilePath)
}

func (l *FileLogger) oldestRotated() (string, error) {
	dir := filepath.Dir(l.LogPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	prefix := filepath.Base(l.LogPath) + "."
	var oldest string
	var oldestInfo os.FileInfo
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if oldestInfo == nil || info.ModTime().Before(oldestInfo.ModTime()) {
			oldest = filepath.Join(dir, entry.Name())
			oldestInfo = info
		}
	}

	if oldestInfo == nil {
		return fmt.Sprintf("%s.%d", l.LogPath, 0), nil
	}
	return oldest, nil
}
