package storage

import (
	"context"
	"fmt"
	"strings"
)

// Tables use portable SQL; only the identity column differs per dialect.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS planners (
	id         %[1]s,
	phone      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id                  %[1]s,
	planner_id          BIGINT NOT NULL REFERENCES planners(id),
	status              TEXT NOT NULL,
	current_stage       TEXT NOT NULL DEFAULT '',
	previous_stage      TEXT NOT NULL DEFAULT '',
	proposed_dates      TEXT NOT NULL DEFAULT '[]',
	selected_date       TEXT NOT NULL DEFAULT '',
	selected_start      INTEGER NOT NULL DEFAULT 0,
	selected_end        INTEGER NOT NULL DEFAULT 0,
	selected_venue      TEXT NOT NULL DEFAULT '',
	selected_guests     TEXT NOT NULL DEFAULT '[]',
	user_set_start_time BOOLEAN NOT NULL DEFAULT FALSE,
	start_time          INTEGER NOT NULL DEFAULT 0,
	activity            TEXT NOT NULL DEFAULT '',
	location            TEXT NOT NULL DEFAULT '',
	venue_options       TEXT NOT NULL DEFAULT '[]',
	venue_exclusions    TEXT NOT NULL DEFAULT '[]',
	notes               TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMP NOT NULL,
	updated_at          TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS events_one_planning_per_planner
	ON events (planner_id) WHERE status = 'planning';

CREATE TABLE IF NOT EXISTS guests (
	id                    %[1]s,
	event_id              BIGINT NOT NULL REFERENCES events(id),
	name                  TEXT NOT NULL,
	phone                 TEXT NOT NULL,
	rsvp_status           TEXT NOT NULL DEFAULT 'pending',
	availability_provided BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (event_id, phone)
);

CREATE TABLE IF NOT EXISTS contacts (
	id         %[1]s,
	planner_id BIGINT NOT NULL REFERENCES planners(id),
	name       TEXT NOT NULL,
	phone      TEXT NOT NULL,
	UNIQUE (planner_id, phone)
);

CREATE TABLE IF NOT EXISTS availabilities (
	id         %[1]s,
	event_id   BIGINT NOT NULL REFERENCES events(id),
	guest_id   BIGINT NOT NULL REFERENCES guests(id),
	date       TEXT NOT NULL,
	start_time INTEGER NOT NULL,
	end_time   INTEGER NOT NULL,
	all_day    BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (event_id, guest_id, date)
);

CREATE TABLE IF NOT EXISTS guest_response_states (
	phone      TEXT PRIMARY KEY,
	event_id   BIGINT NOT NULL,
	kind       TEXT NOT NULL,
	scratch    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
`

func (d dialect) identity() string {
	if d == dialectPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (d dialect) schema() []string {
	var stmts []string
	for _, s := range strings.Split(fmt.Sprintf(schemaTemplate, d.identity()), ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
