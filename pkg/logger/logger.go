// Package logger is the leveled wrapper around the standard log package
// used across the server, client, and audit store. Unlike a single HTTP
// handler's request logger, a broadcast tick and every session's
// goroutine can all log concurrently, so the level is held in an
// atomic.Int32 rather than a bare package variable.
package logger

import (
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel represents the logging level
type LogLevel int32

const (
	LevelError LogLevel = iota
	LevelInfo
	LevelDebug
)

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(LevelInfo))
}

// Init sets the logger's level from the LOG_LEVEL environment variable.
// Safe to call before any goroutines that log are started; the level
// itself is safe to read concurrently with Debug/Info/Error afterward.
func Init() {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		currentLevel.Store(int32(LevelDebug))
	case "error":
		currentLevel.Store(int32(LevelError))
	default:
		currentLevel.Store(int32(LevelInfo))
	}
}

// Debug logs a debug message (only if LOG_LEVEL=debug)
func Debug(format string, v ...interface{}) {
	if LogLevel(currentLevel.Load()) >= LevelDebug {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Info logs an info message (if LOG_LEVEL=info or debug)
func Info(format string, v ...interface{}) {
	if LogLevel(currentLevel.Load()) >= LevelInfo {
		log.Printf("[INFO] "+format, v...)
	}
}

// Error logs an error message (always logged)
func Error(format string, v ...interface{}) {
	log.Printf("[ERROR] "+format, v...)
}
