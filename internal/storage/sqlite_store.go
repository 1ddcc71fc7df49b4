package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"geoalert/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS trackers (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL DEFAULT '',
	type      TEXT NOT NULL DEFAULT 'virtual',
	last_lat  REAL,
	last_lon  REAL,
	last_ts   INTEGER,
	last_acc  REAL
);
CREATE TABLE IF NOT EXISTS geofences (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	center_latitude  REAL NOT NULL,
	center_longitude REAL NOT NULL,
	radius           REAL NOT NULL,
	is_active        INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS tracker_geofences (
	tracker_id     TEXT NOT NULL,
	geofence_id    TEXT NOT NULL,
	alert_on_enter INTEGER NOT NULL DEFAULT 0,
	alert_on_exit  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (tracker_id, geofence_id)
);
CREATE TABLE IF NOT EXISTS geofence_states (
	tracker_id        TEXT NOT NULL,
	geofence_id       TEXT NOT NULL,
	is_inside         INTEGER NOT NULL,
	last_evaluated_at INTEGER NOT NULL,
	last_latitude     REAL NOT NULL,
	last_longitude    REAL NOT NULL,
	PRIMARY KEY (tracker_id, geofence_id)
);
CREATE TABLE IF NOT EXISTS scheduled_alerts (
	id             TEXT PRIMARY KEY,
	tracker_id     TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	message        TEXT NOT NULL DEFAULT '',
	schedule_type  TEXT NOT NULL,
	scheduled_time TEXT NOT NULL,
	scheduled_date TEXT NOT NULL DEFAULT '',
	day_of_week    INTEGER,
	day_of_month   INTEGER,
	is_active      INTEGER NOT NULL DEFAULT 1,
	last_triggered INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS alerts (
	id         TEXT PRIMARY KEY,
	tracker_id TEXT NOT NULL,
	type       TEXT NOT NULL,
	title      TEXT NOT NULL,
	message    TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_tracker ON alerts (tracker_id, created_at);
CREATE TABLE IF NOT EXISTS left_behind_watches (
	tracker_id      TEXT PRIMARY KEY,
	baseline        REAL NOT NULL,
	threshold       REAL NOT NULL,
	triggered       INTEGER NOT NULL DEFAULT 0,
	last_distance   REAL NOT NULL,
	armed_at        INTEGER NOT NULL,
	last_checked_at INTEGER NOT NULL
);
`

// SQLiteStore is the durable Store backed by a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutGeofence(ctx context.Context, g models.Geofence) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geofences (id, name, description, center_latitude, center_longitude, radius, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			center_latitude = excluded.center_latitude,
			center_longitude = excluded.center_longitude,
			radius = excluded.radius,
			is_active = excluded.is_active`,
		g.ID, g.Name, g.Description, g.CenterLatitude, g.CenterLongitude, g.RadiusMeters, g.IsActive)
	return err
}

const geofenceColumns = `g.id, g.name, g.description, g.center_latitude, g.center_longitude, g.radius, g.is_active`

func scanGeofence(row interface{ Scan(...any) error }) (models.Geofence, error) {
	var g models.Geofence
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.CenterLatitude, &g.CenterLongitude, &g.RadiusMeters, &g.IsActive)
	return g, err
}

func (s *SQLiteStore) GetGeofence(ctx context.Context, id string) (models.Geofence, error) {
	g, err := scanGeofence(s.db.QueryRowContext(ctx, `SELECT `+geofenceColumns+` FROM geofences g WHERE g.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Geofence{}, fmt.Errorf("geofence %s: %w", id, ErrNotFound)
	}
	return g, err
}

func (s *SQLiteStore) ListGeofences(ctx context.Context) ([]models.Geofence, error) {
	return s.queryGeofences(ctx, `SELECT `+geofenceColumns+` FROM geofences g ORDER BY g.id`)
}

func (s *SQLiteStore) GeofencesForTracker(ctx context.Context, trackerID string) ([]models.Geofence, error) {
	return s.queryGeofences(ctx, `
		SELECT `+geofenceColumns+`
		FROM tracker_geofences tg JOIN geofences g ON g.id = tg.geofence_id
		WHERE tg.tracker_id = ?
		ORDER BY g.id`, trackerID)
}

func (s *SQLiteStore) queryGeofences(ctx context.Context, query string, args ...any) ([]models.Geofence, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Geofence
	for rows.Next() {
		g, err := scanGeofence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan geofence: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteGeofence(ctx context.Context, id string) error {
	return s.transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM geofences WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("geofence %s: %w", id, ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tracker_geofences WHERE geofence_id = ?`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM geofence_states WHERE geofence_id = ?`, id)
		return err
	})
}

func (s *SQLiteStore) PutLink(ctx context.Context, link models.TrackerGeofenceLink) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracker_geofences (tracker_id, geofence_id, alert_on_enter, alert_on_exit)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tracker_id, geofence_id) DO UPDATE SET
			alert_on_enter = excluded.alert_on_enter,
			alert_on_exit = excluded.alert_on_exit`,
		link.TrackerID, link.GeofenceID, link.AlertOnEnter, link.AlertOnExit)
	return err
}

func (s *SQLiteStore) DeleteLink(ctx context.Context, key models.GeofenceKey) error {
	return s.transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tracker_geofences WHERE tracker_id = ? AND geofence_id = ?`, key.TrackerID, key.GeofenceID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("link %s/%s: %w", key.TrackerID, key.GeofenceID, ErrNotFound)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM geofence_states WHERE tracker_id = ? AND geofence_id = ?`, key.TrackerID, key.GeofenceID)
		return err
	})
}

func (s *SQLiteStore) LinksForTracker(ctx context.Context, trackerID string) ([]models.TrackerGeofenceLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tracker_id, geofence_id, alert_on_enter, alert_on_exit
		FROM tracker_geofences WHERE tracker_id = ? ORDER BY geofence_id`, trackerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TrackerGeofenceLink
	for rows.Next() {
		var l models.TrackerGeofenceLink
		if err := rows.Scan(&l.TrackerID, &l.GeofenceID, &l.AlertOnEnter, &l.AlertOnExit); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetState(ctx context.Context, key models.GeofenceKey) (models.GeofenceState, bool, error) {
	st := models.GeofenceState{TrackerID: key.TrackerID, GeofenceID: key.GeofenceID}
	err := s.db.QueryRowContext(ctx, `
		SELECT is_inside, last_evaluated_at, last_latitude, last_longitude
		FROM geofence_states WHERE tracker_id = ? AND geofence_id = ?`, key.TrackerID, key.GeofenceID).
		Scan(&st.IsInside, &st.LastEvaluatedAt, &st.LastLatitude, &st.LastLongitude)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GeofenceState{}, false, nil
	}
	if err != nil {
		return models.GeofenceState{}, false, err
	}
	return st, true, nil
}

func (s *SQLiteStore) StatesForTracker(ctx context.Context, trackerID string) (map[models.GeofenceKey]models.GeofenceState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tracker_id, geofence_id, is_inside, last_evaluated_at, last_latitude, last_longitude
		FROM geofence_states WHERE tracker_id = ?`, trackerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[models.GeofenceKey]models.GeofenceState)
	for rows.Next() {
		var st models.GeofenceState
		if err := rows.Scan(&st.TrackerID, &st.GeofenceID, &st.IsInside, &st.LastEvaluatedAt, &st.LastLatitude, &st.LastLongitude); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		out[st.Key()] = st
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RecordEvaluation(ctx context.Context, trackerID string, sample models.LocationSample, states []models.GeofenceState) error {
	return s.transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trackers (id, type, last_lat, last_lon, last_ts, last_acc)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				last_lat = excluded.last_lat,
				last_lon = excluded.last_lon,
				last_ts = excluded.last_ts,
				last_acc = excluded.last_acc`,
			trackerID, models.TrackerVirtual, sample.Latitude, sample.Longitude, sample.TimestampMs, sample.AccuracyMeters)
		if err != nil {
			return fmt.Errorf("update tracker: %w", err)
		}
		for _, st := range states {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO geofence_states (tracker_id, geofence_id, is_inside, last_evaluated_at, last_latitude, last_longitude)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(tracker_id, geofence_id) DO UPDATE SET
					is_inside = excluded.is_inside,
					last_evaluated_at = excluded.last_evaluated_at,
					last_latitude = excluded.last_latitude,
					last_longitude = excluded.last_longitude`,
				st.TrackerID, st.GeofenceID, st.IsInside, st.LastEvaluatedAt, st.LastLatitude, st.LastLongitude)
			if err != nil {
				return fmt.Errorf("put state %s/%s: %w", st.TrackerID, st.GeofenceID, err)
			}
		}
		return nil
	})
}

const ruleColumns = `id, tracker_id, title, message, schedule_type, scheduled_time, scheduled_date, day_of_week, day_of_month, is_active, last_triggered`

func scanRule(row interface{ Scan(...any) error }) (models.ScheduleRule, error) {
	var (
		r          models.ScheduleRule
		dayOfWeek  sql.NullInt64
		dayOfMonth sql.NullInt64
	)
	err := row.Scan(&r.ID, &r.TrackerID, &r.Title, &r.Message, &r.ScheduleType, &r.ScheduledTime,
		&r.ScheduledDate, &dayOfWeek, &dayOfMonth, &r.IsActive, &r.LastTriggeredAt)
	if err != nil {
		return r, err
	}
	if dayOfWeek.Valid {
		v := int(dayOfWeek.Int64)
		r.DayOfWeek = &v
	}
	if dayOfMonth.Valid {
		v := int(dayOfMonth.Int64)
		r.DayOfMonth = &v
	}
	return r, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func (s *SQLiteStore) GetRule(ctx context.Context, id string) (models.ScheduleRule, error) {
	r, err := scanRule(s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM scheduled_alerts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ScheduleRule{}, fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	return r, err
}

func (s *SQLiteStore) PutRule(ctx context.Context, rule models.ScheduleRule) error {
	return s.PutRules(ctx, []models.ScheduleRule{rule})
}

func (s *SQLiteStore) PutRules(ctx context.Context, rules []models.ScheduleRule) error {
	return s.transaction(ctx, func(tx *sql.Tx) error {
		for _, r := range rules {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO scheduled_alerts (`+ruleColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					tracker_id = excluded.tracker_id,
					title = excluded.title,
					message = excluded.message,
					schedule_type = excluded.schedule_type,
					scheduled_time = excluded.scheduled_time,
					scheduled_date = excluded.scheduled_date,
					day_of_week = excluded.day_of_week,
					day_of_month = excluded.day_of_month,
					is_active = excluded.is_active,
					last_triggered = excluded.last_triggered`,
				r.ID, r.TrackerID, r.Title, r.Message, r.ScheduleType, r.ScheduledTime, r.ScheduledDate,
				nullableInt(r.DayOfWeek), nullableInt(r.DayOfMonth), r.IsActive, r.LastTriggeredAt)
			if err != nil {
				return fmt.Errorf("put rule %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) ListRules(ctx context.Context, trackerID string) ([]models.ScheduleRule, error) {
	if trackerID == "" {
		return s.queryRules(ctx, `SELECT `+ruleColumns+` FROM scheduled_alerts ORDER BY id`)
	}
	return s.queryRules(ctx, `SELECT `+ruleColumns+` FROM scheduled_alerts WHERE tracker_id = ? ORDER BY id`, trackerID)
}

func (s *SQLiteStore) ActiveRules(ctx context.Context) ([]models.ScheduleRule, error) {
	return s.queryRules(ctx, `SELECT `+ruleColumns+` FROM scheduled_alerts WHERE is_active = 1 ORDER BY id`)
}

func (s *SQLiteStore) queryRules(ctx context.Context, query string, args ...any) ([]models.ScheduleRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScheduleRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_alerts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) PutTracker(ctx context.Context, t models.Tracker) error {
	if t.Type == "" {
		t.Type = models.TrackerVirtual
	}
	if t.LastSeen == nil {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO trackers (id, name, type) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, type = excluded.type`,
			t.ID, t.Name, t.Type)
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trackers (id, name, type, last_lat, last_lon, last_ts, last_acc) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			last_lat = excluded.last_lat,
			last_lon = excluded.last_lon,
			last_ts = excluded.last_ts,
			last_acc = excluded.last_acc`,
		t.ID, t.Name, t.Type, t.LastSeen.Latitude, t.LastSeen.Longitude, t.LastSeen.TimestampMs, t.LastSeen.AccuracyMeters)
	return err
}

const trackerColumns = `id, name, type, last_lat, last_lon, last_ts, last_acc`

func scanTracker(row interface{ Scan(...any) error }) (models.Tracker, error) {
	var (
		t        models.Tracker
		lat, lon sql.NullFloat64
		ts       sql.NullInt64
		acc      sql.NullFloat64
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Type, &lat, &lon, &ts, &acc); err != nil {
		return t, err
	}
	if lat.Valid && lon.Valid && ts.Valid {
		t.LastSeen = &models.LocationSample{Latitude: lat.Float64, Longitude: lon.Float64, TimestampMs: ts.Int64}
		if acc.Valid {
			v := acc.Float64
			t.LastSeen.AccuracyMeters = &v
		}
	}
	return t, nil
}

func (s *SQLiteStore) GetTracker(ctx context.Context, id string) (models.Tracker, error) {
	t, err := scanTracker(s.db.QueryRowContext(ctx, `SELECT `+trackerColumns+` FROM trackers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Tracker{}, fmt.Errorf("tracker %s: %w", id, ErrNotFound)
	}
	return t, err
}

func (s *SQLiteStore) ListTrackers(ctx context.Context) ([]models.Tracker, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+trackerColumns+` FROM trackers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Tracker
	for rows.Next() {
		t, err := scanTracker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracker: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendAlert(ctx context.Context, a models.Alert) error {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode alert metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, tracker_id, type, title, message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TrackerID, a.Type, a.Title, a.Message, string(meta), a.CreatedAt.UnixMilli())
	return err
}

func (s *SQLiteStore) ListAlerts(ctx context.Context, trackerID string, limit int) ([]models.Alert, error) {
	query := `SELECT id, tracker_id, type, title, message, metadata, created_at FROM alerts`
	var args []any
	if trackerID != "" {
		query += ` WHERE tracker_id = ?`
		args = append(args, trackerID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var (
			a       models.Alert
			meta    string
			created int64
		)
		if err := rows.Scan(&a.ID, &a.TrackerID, &a.Type, &a.Title, &a.Message, &meta, &created); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if meta != "" && meta != "null" {
			if err := json.Unmarshal([]byte(meta), &a.Metadata); err != nil {
				return nil, fmt.Errorf("decode alert metadata: %w", err)
			}
		}
		a.CreatedAt = time.UnixMilli(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

const watchColumns = `tracker_id, baseline, threshold, triggered, last_distance, armed_at, last_checked_at`

func scanWatch(row interface{ Scan(...any) error }) (models.LeftBehindWatch, error) {
	var w models.LeftBehindWatch
	err := row.Scan(&w.TrackerID, &w.BaselineMeters, &w.ThresholdMeters, &w.Triggered, &w.LastDistanceMeters, &w.ArmedAt, &w.LastCheckedAt)
	return w, err
}

func (s *SQLiteStore) PutWatch(ctx context.Context, w models.LeftBehindWatch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO left_behind_watches (`+watchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tracker_id) DO UPDATE SET
			baseline = excluded.baseline,
			threshold = excluded.threshold,
			triggered = excluded.triggered,
			last_distance = excluded.last_distance,
			armed_at = excluded.armed_at,
			last_checked_at = excluded.last_checked_at`,
		w.TrackerID, w.BaselineMeters, w.ThresholdMeters, w.Triggered, w.LastDistanceMeters, w.ArmedAt, w.LastCheckedAt)
	return err
}

func (s *SQLiteStore) GetWatch(ctx context.Context, trackerID string) (models.LeftBehindWatch, error) {
	w, err := scanWatch(s.db.QueryRowContext(ctx, `SELECT `+watchColumns+` FROM left_behind_watches WHERE tracker_id = ?`, trackerID))
	if errors.Is(err, sql.ErrNoRows) {
		return w, fmt.Errorf("watch %s: %w", trackerID, ErrNotFound)
	}
	return w, err
}

func (s *SQLiteStore) ListWatches(ctx context.Context) ([]models.LeftBehindWatch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+watchColumns+` FROM left_behind_watches ORDER BY tracker_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LeftBehindWatch
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watch: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteWatch(ctx context.Context, trackerID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM left_behind_watches WHERE tracker_id = ?`, trackerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("watch %s: %w", trackerID, ErrNotFound)
	}
	return nil
}
