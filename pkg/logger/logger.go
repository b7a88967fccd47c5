// Package logx configures the process-wide zerolog logger. Components log
// through the zerolog/log global so the engine, stores, and HTTP server all
// share one sink.
package logx

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool   `split_words:"true" default:"false"`
	PrettyFormat bool   `split_words:"true" default:"false"`
	Service      string `split_words:"true" default:"lucy-agent"`
}

var DefaultConfig = &Config{
	Debug:        false,
	PrettyFormat: false,
	Service:      "lucy-agent",
}

func safe(opts ...Config) *Config {
	if len(opts) == 0 {
		return DefaultConfig
	}
	return &opts[0]
}

// Init replaces the zerolog global with a logger built from conf. Pretty
// output is for local runs; production deployments keep JSON lines.
func Init(opts ...Config) {
	conf := safe(opts...)

	var w = zerolog.LevelWriter(zerolog.MultiLevelWriter(os.Stdout))
	if conf.PrettyFormat {
		w = zerolog.MultiLevelWriter(zerolog.NewConsoleWriter())
	}

	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", conf.Service).
		Caller().
		Stack().
		Logger()
}
