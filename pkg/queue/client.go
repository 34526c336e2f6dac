package queue

import (
	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/akulov/framesweep/pkg/queue/nats"
)

type Config struct {
	Type string      `yaml:"type"`
	Nats nats.Config `yaml:"nats"`
}

type Publisher interface {
	Pub(channel string, msg []byte) error
}

func NewPublisher(cfg Config, log log.Logger) (Publisher, error) {
	switch cfg.Type {
	case "nats":
		return nats.NewNatsClient(cfg.Nats, log)
	default:
		return nil, errors.New("invalid queue type")
	}
}
