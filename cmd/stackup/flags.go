package main

import "time"

// GlobalFlags holds persistent flags shared by every subcommand.
type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
}

// StopFlags holds stop-specific flags.
type StopFlags struct {
	Wait time.Duration
}

// StatusFlags holds status/check output flags.
type StatusFlags struct {
	History      bool
	HistoryLimit int
	JSON         bool
}

// ServeFlags holds serve-specific flags.
type ServeFlags struct {
	NoStart bool
}
