package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

var (
	InfoLogger  = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime)
	ErrorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime)
	DebugLogger = log.New(io.Discard, "DEBUG: ", log.Ldate|log.Ltime)
)

// InitLoggers перенаправляет логгеры в файлы info.log, error.log и debug.log
// в каталоге dir. Пустой dir оставляет вывод в stdout/stderr.
func InitLoggers(dir string, debug bool) error {
	if dir == "" {
		if debug {
			DebugLogger.SetOutput(os.Stdout)
		}
		return nil
	}

	// Создаем директорию для логов, если она не существует
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("не удалось создать каталог логов: %w", err)
	}

	infoFile, err := openLogFile(dir, "info.log")
	if err != nil {
		return err
	}
	errorFile, err := openLogFile(dir, "error.log")
	if err != nil {
		return err
	}

	InfoLogger.SetOutput(io.MultiWriter(os.Stdout, infoFile))
	ErrorLogger.SetOutput(io.MultiWriter(os.Stderr, errorFile))

	if debug {
		debugFile, err := openLogFile(dir, "debug.log")
		if err != nil {
			return err
		}
		DebugLogger.SetOutput(debugFile)
	}
	return nil
}

func openLogFile(dir, name string) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл лога %s: %w", name, err)
	}
	return f, nil
}

// LogInfo логирует информационное сообщение
func LogInfo(format string, v ...interface{}) {
	_, file, line, _ := runtime.Caller(1)
	InfoLogger.Printf("%s:%d - %s", filepath.Base(file), line, fmt.Sprintf(format, v...))
}

// LogError логирует сообщение об ошибке
func LogError(format string, v ...interface{}) {
	_, file, line, _ := runtime.Caller(1)
	ErrorLogger.Printf("%s:%d - %s", filepath.Base(file), line, fmt.Sprintf(format, v...))
}

// LogDebug логирует отладочное сообщение
func LogDebug(format string, v ...interface{}) {
	_, file, line, _ := runtime.Caller(1)
	DebugLogger.Printf("%s:%d - %s", filepath.Base(file), line, fmt.Sprintf(format, v...))
}

// LogOperation логирует операцию с метриками
func LogOperation(operation string, startTime time.Time, err error) {
	duration := time.Since(startTime)
	if err != nil {
		LogError("Operation %s failed after %v: %v", operation, duration, err)
	} else {
		LogDebug("Operation %s completed in %v", operation, duration)
	}
}
