package archiver

import (
	"context"
	"fmt"

	"github.com/akulov/framesweep/pkg/archiver/minio"
)

const Bucket = "framesweeparchive"

type Config struct {
	Store  string       `yaml:"store"`
	Bucket string       `yaml:"bucket"`
	Minio  minio.Config `yaml:"minio"`
}

// Enabled reports whether archiving is configured at all. With no store set,
// deletes are permanent.
func (c Config) Enabled() bool {
	return c.Store != ""
}

// Writer uploads a sequence directory to remote storage before it is
// removed locally.
type Writer interface {
	StoreDir(ctx context.Context, dir string) error
}

func NewWriter(cfg Config) (Writer, error) {
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = Bucket
	}

	switch cfg.Store {
	case "minio":
		return minio.NewWriter(cfg.Minio, bucket)
	}

	return nil, fmt.Errorf("invalid store for archive writer")
}
