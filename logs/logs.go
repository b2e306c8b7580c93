package logs

import logging "github.com/ipfs/go-log/v2"

// SetAllLoggers sets every subsystem to level, keeping the chatty ones quieter.
func SetAllLoggers(level logging.LogLevel) {
	logging.SetAllLoggers(level)
	// every lifecycle event is logged at debug
	_ = logging.SetLogLevel("fx", "WARN")
	_ = logging.SetLogLevel("watchdog", "WARN")
	// go-jsonrpc logs every failed call on its own
	_ = logging.SetLogLevel("rpc", "ERROR")
}

// SetupFileOutput routes every log line to the file at path in addition to
// stderr, keeping the current level and format.
func SetupFileOutput(path string, level logging.LogLevel) {
	cfg := logging.GetConfig()
	cfg.Level = level
	cfg.File = path
	cfg.Stderr = true
	logging.SetupLogging(cfg)
}
