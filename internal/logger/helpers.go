package logger

import (
	"io"
	"os"
)

// Bound to the root command's persistent flags.
var (
	FlagVerboseCount int
	FlagQuiet        bool
	FlagSilent       bool
	FlagJSON         bool
)

// FlagOptions maps the verbosity flags to logger options. --silent wins over
// --quiet, which wins over -V. Colors are off in JSON mode.
func FlagOptions(verbose int, quiet, silent, json bool) Options {
	opts := Options{Level: "info", JSON: json, Color: !json, Out: os.Stdout}
	switch {
	case silent:
		opts.Level, opts.Out = "error", io.Discard
	case quiet:
		opts.Level = "error"
	case verbose > 0:
		opts.Level = "debug"
	}
	return opts
}

func ConfigureLoggerFromFlags() {
	Configure(FlagOptions(FlagVerboseCount, FlagQuiet, FlagSilent, FlagJSON))
}
