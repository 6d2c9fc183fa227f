package main

import (
	"log"
	"strings"
)

type LogLevel string

const (
	LOG_LEVEL_TRACE = "TRACE"
	LOG_LEVEL_DEBUG = "DEBUG"
	LOG_LEVEL_INFO  = "INFO"
	LOG_LEVEL_WARN  = "WARN"
	LOG_LEVEL_ERROR = "ERROR"
	LOG_LEVEL_OFF   = "OFF"

	// Accepted for compatibility with the Spark driver log levels
	LOG_LEVEL_ALL   = "ALL"
	LOG_LEVEL_FATAL = "FATAL"
)

var LOG_LEVELS = []string{
	LOG_LEVEL_ALL,
	LOG_LEVEL_TRACE,
	LOG_LEVEL_DEBUG,
	LOG_LEVEL_INFO,
	LOG_LEVEL_WARN,
	LOG_LEVEL_ERROR,
	LOG_LEVEL_FATAL,
	LOG_LEVEL_OFF,
}

var logLevelRanks = map[string]int{
	LOG_LEVEL_ALL:   0,
	LOG_LEVEL_TRACE: 0,
	LOG_LEVEL_DEBUG: 1,
	LOG_LEVEL_INFO:  2,
	LOG_LEVEL_WARN:  3,
	LOG_LEVEL_ERROR: 4,
	LOG_LEVEL_FATAL: 4,
	LOG_LEVEL_OFF:   5,
}

func LogError(config *Config, message ...interface{}) {
	logAtLevel(config, LOG_LEVEL_ERROR, message)
}

func LogWarn(config *Config, message ...interface{}) {
	logAtLevel(config, LOG_LEVEL_WARN, message)
}

func LogInfo(config *Config, message ...interface{}) {
	logAtLevel(config, LOG_LEVEL_INFO, message)
}

func LogDebug(config *Config, message ...interface{}) {
	logAtLevel(config, LOG_LEVEL_DEBUG, message)
}

func LogTrace(config *Config, message ...interface{}) {
	logAtLevel(config, LOG_LEVEL_TRACE, message)
}

func IsLogLevelEnabled(config *Config, level string) bool {
	configuredRank, ok := logLevelRanks[strings.ToUpper(config.LogLevel)]
	if !ok {
		configuredRank = logLevelRanks[LOG_LEVEL_INFO]
	}
	return logLevelRanks[level] >= configuredRank && configuredRank < logLevelRanks[LOG_LEVEL_OFF]
}

func logAtLevel(config *Config, level string, message []interface{}) {
	if !IsLogLevelEnabled(config, level) {
		return
	}
	log.Println(append([]interface{}{"[" + level + "]"}, message...)...)
}
