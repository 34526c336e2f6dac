package notifier

import (
	"encoding/json"
	"fmt"
	"time"

	gklog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/akulov/framesweep/pkg/queue"
)

const defaultChannel = "framesweep"

type Config struct {
	Channel string       `yaml:"channel"`
	Queue   queue.Config `yaml:"queue"`
}

func (c Config) Enabled() bool {
	return c.Queue.Type != ""
}

// RunReport is the message published after a destructive run, so downstream
// pipeline tooling can react to freed storage.
type RunReport struct {
	RunID      string    `json:"run_id"`
	ProjectID  int       `json:"project_id"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Planned    int       `json:"planned"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	TotalBytes int64     `json:"total_bytes"`
}

type Notifier struct {
	cfg Config
	log gklog.Logger
	pub queue.Publisher
}

func New(cfg Config, log gklog.Logger) (*Notifier, error) {
	pub, err := queue.NewPublisher(cfg.Queue, log)
	if err != nil {
		return nil, errors.Wrap(err, "notifier connect to queue")
	}

	return &Notifier{
		cfg: cfg,
		log: log,
		pub: pub,
	}, nil
}

func (n *Notifier) NotifyRun(rep *RunReport) error {
	channel := n.cfg.Channel
	if channel == "" {
		channel = defaultChannel
	}

	body, err := json.Marshal(rep)
	if err != nil {
		return errors.Wrap(err, "notifier marshal run report")
	}

	if err := n.pub.Pub(channel, body); err != nil {
		return errors.Wrap(err, "notifier publish run report")
	}

	level.Debug(n.log).Log("msg", fmt.Sprintf("sent run report %s to channel %q", rep.RunID, channel))
	return nil
}
