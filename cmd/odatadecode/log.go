package main

import (
	"github.com/echa/config"
	logpkg "github.com/echa/log"

	"github.com/CaliLuke/go-odata/csdl"
	"github.com/CaliLuke/go-odata/serde"
)

var (
	log     = logpkg.NewLogger("MAIN") // main program
	serdLog = logpkg.NewLogger("SERD") // payload readers
	csdlLog = logpkg.NewLogger("CSDL") // metadata loader
)

func init() {
	config.SetDefault("logging.backend", "stdout")
	config.SetDefault("logging.flags", "date,time,micro,utc")
	config.SetDefault("logging.level", "warn")
	config.SetDefault("logging.serde", "warn")
	config.SetDefault("logging.csdl", "warn")
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]logpkg.Logger{
	"MAIN": log,
	"SERD": serdLog,
	"CSDL": csdlLog,
}

func initLogging() {
	cfg := logpkg.NewConfig()
	cfg.Level = logpkg.ParseLevel(config.GetString("logging.level"))
	cfg.Flags = logpkg.ParseFlags(config.GetString("logging.flags"))
	cfg.Backend = config.GetString("logging.backend")
	cfg.Filename = config.GetString("logging.filename")
	logpkg.Init(cfg)

	log = logpkg.NewLogger("MAIN")
	serdLog = logpkg.NewLogger("SERD")
	serdLog.SetLevel(logpkg.ParseLevel(config.GetString("logging.serde")))
	csdlLog = logpkg.NewLogger("CSDL")
	csdlLog.SetLevel(logpkg.ParseLevel(config.GetString("logging.csdl")))

	serde.UseLogger(serdLog)
	csdl.UseLogger(csdlLog)

	subsystemLoggers = map[string]logpkg.Logger{
		"MAIN": log,
		"SERD": serdLog,
		"CSDL": csdlLog,
	}
}

// setLogLevels sets the log level for all subsystem loggers.
func setLogLevels(level logpkg.Level) {
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
}
