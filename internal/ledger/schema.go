package ledger

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    tile_spec     TEXT NOT NULL,
    workspace     TEXT NOT NULL,
    status        TEXT NOT NULL,
    error_message TEXT,
    started_at    TEXT NOT NULL,
    finished_at   TEXT
);

CREATE TABLE IF NOT EXISTS run_stages (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    stage       TEXT NOT NULL,
    artifact    TEXT,
    status      TEXT NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    started_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_stages_run_id ON run_stages(run_id);
`

func (s *Store) applySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}
