package log

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/weaveworks/common/logging"
)

var (
	Logger = log.NewNopLogger()
)

type Config struct {
	LogFormat logging.Format `yaml:"log_format"`
	LogLevel  logging.Level  `yaml:"log_level"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	c.LogFormat.RegisterFlags(f)
	c.LogLevel.RegisterFlags(f)
}

// InitLogger replaces the package-level Logger with one built from cfg.
func InitLogger(cfg *Config) {
	var logger log.Logger
	if cfg.LogFormat.String() == "json" {
		logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	}

	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.Caller(5))
	Logger = level.NewFilter(logger, cfg.LogLevel.Gokit)
}

// CheckFatal logs err and exits when err is set.
func CheckFatal(location string, err error) {
	if err != nil {
		logger := level.Error(Logger)
		if location != "" {
			logger = log.With(logger, "msg", "error "+location)
		}

		_ = logger.Log("err", fmt.Sprintf("%+v", err))
		os.Exit(1)
	}
}
