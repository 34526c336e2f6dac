package pg

import (
	"context"

	"github.com/go-kit/log"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/akulov/framesweep/pkg/history/record"
)

type Config struct {
	Conn string `yaml:"conn"`
}

type Store struct {
	cfg  Config
	log  log.Logger
	conn *pgx.Conn
}

func NewRunStore(ctx context.Context, cfg Config, log log.Logger) (*Store, error) {
	conn, err := pgx.Connect(ctx, cfg.Conn)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: init connection")
	}

	q := `create table if not exists public.framesweep_runs (
		run_id uuid primary key,
		project_id integer not null,
		mode text not null,
		started_at timestamptz not null,
		finished_at timestamptz not null,
		planned integer not null,
		succeeded integer not null,
		failed integer not null,
		skipped integer not null,
		status text not null,
		details text null);`
	if _, err := conn.Exec(ctx, q); err != nil {
		return nil, errors.Wrap(err, "postgres: init table")
	}

	return &Store{
		cfg:  cfg,
		log:  log,
		conn: conn,
	}, nil
}

func (s *Store) AppendRun(ctx context.Context, run *record.Run) error {
	q := `insert into public.framesweep_runs
	(run_id, project_id, mode, started_at, finished_at, planned, succeeded, failed, skipped, status, details)
	values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`

	_, err := s.conn.Exec(ctx, q,
		run.ID, run.ProjectID, run.Mode, run.StartedAt, run.FinishedAt,
		run.Planned, run.Succeeded, run.Failed, run.Skipped, run.Status, run.Details)
	if err != nil {
		return errors.Wrap(err, "postgres: append run")
	}

	return nil
}

func (s *Store) Dispose(ctx context.Context) error {
	if err := s.conn.Close(ctx); err != nil {
		return errors.Wrap(err, "postgres: close connection")
	}

	return nil
}
