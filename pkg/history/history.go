package history

import (
	"context"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/akulov/framesweep/pkg/history/pg"
	"github.com/akulov/framesweep/pkg/history/record"
)

type Config struct {
	Store string    `yaml:"store"`
	Pg    pg.Config `yaml:"pg"`
}

func (c Config) Enabled() bool {
	return c.Store != ""
}

type Store interface {
	AppendRun(ctx context.Context, run *record.Run) error
	Dispose(ctx context.Context) error
}

func NewStore(ctx context.Context, cfg Config, log log.Logger) (Store, error) {
	switch cfg.Store {
	case "pg":
		return pg.NewRunStore(ctx, cfg.Pg, log)
	}

	return nil, errors.New("invalid store for run history")
}
