package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/probeworks/pingd/db/migration/pingdb"
	"github.com/probeworks/pingd/db/sqlite"
	"github.com/probeworks/pingd/server/instructions"
	"github.com/probeworks/pingd/share"
	"github.com/probeworks/pingd/share/logger"
)

// columnUpgrades are the additive-column upgrades applied to databases
// created by older deployments. Existing rows are never touched.
var columnUpgrades = []struct {
	table  string
	column string
	ddl    string
}{
	{"clients", "last_location", `ALTER TABLE clients ADD COLUMN last_location TEXT DEFAULT 'N/A'`},
	{"ping_sessions", "start_location", `ALTER TABLE ping_sessions ADD COLUMN start_location TEXT DEFAULT 'N/A'`},
	{"ping_sessions", "end_location", `ALTER TABLE ping_sessions ADD COLUMN end_location TEXT DEFAULT 'N/A'`},
	{"ping_results", "location", `ALTER TABLE ping_results ADD COLUMN location TEXT DEFAULT 'N/A'`},
	{"heartbeats", "instruction_sent", `ALTER TABLE heartbeats ADD COLUMN instruction_sent TEXT`},
}

// SqliteProvider owns the telemetry schema and all read/write operations.
// Every write method holds the provider mutex for its whole read-modify-write
// body, serializing writes across all request goroutines. Reads are not lock
// protected and may race writers.
type SqliteProvider struct {
	db       *sqlx.DB
	logger   *logger.Logger
	selector *instructions.Selector

	mu sync.Mutex
}

// NewSqliteProvider opens (or creates) the telemetry DB at dbPath and brings
// the schema up to date. selector may be nil; when set, heartbeats get a ping
// instruction recorded and returned.
func NewSqliteProvider(dbPath string, opts sqlite.DataSourceOptions, selector *instructions.Selector, l *logger.Logger) (*SqliteProvider, error) {
	db, err := sqlite.New(dbPath, pingdb.AssetNames(), pingdb.Asset, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telemetry DB instance")
	}

	p := &SqliteProvider{db: db, logger: l, selector: selector}
	if err := p.applyColumnUpgrades(); err != nil {
		return nil, err
	}

	l.Infof("initialized database at %s", dbPath)
	return p, nil
}

func (p *SqliteProvider) applyColumnUpgrades() error {
	for _, up := range columnUpgrades {
		exists, err := p.columnExists(up.table, up.column)
		if err != nil {
			return errors.Wrapf(err, "failed to inspect table %s", up.table)
		}
		if exists {
			continue
		}
		if _, err := p.db.Exec(up.ddl); err != nil {
			return errors.Wrapf(err, "failed to add column %s.%s", up.table, up.column)
		}
		p.logger.Infof("added column %s to %s table", up.column, up.table)
	}
	return nil
}

func (p *SqliteProvider) columnExists(table, column string) (bool, error) {
	rows, err := p.db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, ctype      string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// UpsertClient registers a new client or refreshes an existing one. The
// stored total_sessions counter and first_seen are preserved on update.
func (p *SqliteProvider) UpsertClient(ctx context.Context, info DeviceInfo) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	clientID := ClientID(info.DeviceID, info.DeviceModel)
	now := share.NowISO()

	var existing string
	err := p.db.GetContext(ctx, &existing, "SELECT client_id FROM clients WHERE client_id = ?", clientID)
	switch {
	case err == sql.ErrNoRows:
		_, err = p.db.ExecContext(ctx,
			`INSERT INTO clients
			 (client_id, device_id, device_model, android_version, app_version,
			  first_seen, last_seen, last_location, total_sessions)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
			clientID, info.DeviceID, info.DeviceModel, info.AndroidVersion, info.AppVersion,
			now, now, info.Location)
		if err != nil {
			return "", errors.Wrap(err, "failed to insert client")
		}
	case err != nil:
		return "", errors.Wrap(err, "failed to look up client")
	default:
		_, err = p.db.ExecContext(ctx,
			`UPDATE clients SET
			 last_seen = ?, device_model = ?, android_version = ?, app_version = ?, last_location = ?
			 WHERE client_id = ?`,
			now, info.DeviceModel, info.AndroidVersion, info.AppVersion, info.Location, clientID)
		if err != nil {
			return "", errors.Wrap(err, "failed to update client")
		}
	}

	return clientID, nil
}

// RecordHeartbeat appends a heartbeat log row. When an instruction selector
// is configured one instruction is chosen, serialized into the row, and
// returned. The referenced client's last_seen/last_location are refreshed
// when a client id is supplied; the heartbeat is logged either way.
func (p *SqliteProvider) RecordHeartbeat(ctx context.Context, hb Heartbeat) (*instructions.Instruction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var selected *instructions.Instruction
	var instructionSent string
	if p.selector != nil {
		in := p.selector.Select()
		selected = &in
		b, err := json.Marshal(in)
		if err != nil {
			return nil, errors.Wrap(err, "failed to serialize instruction")
		}
		instructionSent = string(b)
	}

	now := share.NowISO()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO heartbeats (client_id, device_id, app_status, location, timestamp, instruction_sent)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		hb.ClientID, hb.DeviceID, hb.AppStatus, hb.Location, now, instructionSent)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store heartbeat")
	}

	if hb.ClientID != "" {
		_, err = p.db.ExecContext(ctx,
			`UPDATE clients SET last_seen = ?, last_location = ? WHERE client_id = ?`,
			now, hb.Location, hb.ClientID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to refresh client on heartbeat")
		}
	}

	return selected, nil
}

// StoreSession inserts one session row, bumps the client's stored session
// counter and last_location, and inserts the child results. The whole unit
// runs in one transaction so a partial failure leaves nothing visible.
func (p *SqliteProvider) StoreSession(ctx context.Context, s Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	settingsJSON, err := json.Marshal(s.Settings)
	if err != nil {
		return errors.Wrap(err, "failed to serialize session settings")
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin session transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ping_sessions
		 (session_id, client_id, host, protocol, start_time, end_time,
		  duration_seconds, packets_sent, packets_received, packet_loss_percent,
		  avg_rtt_ms, min_rtt_ms, max_rtt_ms, total_bytes, avg_bandwidth_bps,
		  start_location, end_location, settings_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.ClientID, s.Host, s.Protocol, s.StartTime, s.EndTime,
		s.DurationSeconds, s.PacketsSent, s.PacketsReceived, s.PacketLossPercent,
		s.AvgRTTMS, s.MinRTTMS, s.MaxRTTMS, s.TotalBytes, s.AvgBandwidthBPS,
		s.StartLocation, s.EndLocation, string(settingsJSON))
	if err != nil {
		return errors.Wrap(err, "failed to insert session")
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE clients SET total_sessions = total_sessions + 1, last_location = ? WHERE client_id = ?`,
		s.EndLocation, s.ClientID)
	if err != nil {
		return errors.Wrap(err, "failed to bump client session counter")
	}

	for _, r := range s.Results {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ping_results
			 (session_id, timestamp, sequence_number, success, rtt_ms, location, error_message)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.SessionID, r.Timestamp, r.SequenceNumber, r.Success, r.RTTMS, r.Location, r.ErrorMessage)
		if err != nil {
			return errors.Wrap(err, "failed to insert ping result")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit session")
	}
	return nil
}

const clientStatsQuery = `
	SELECT c.*, COUNT(s.session_id) AS actual_sessions
	FROM clients c
	LEFT JOIN ping_sessions s ON c.client_id = s.client_id
`

// GetClientStats returns one client merged with its join-derived session
// count, or nil when the client is unknown.
func (p *SqliteProvider) GetClientStats(ctx context.Context, clientID string) (*ClientStats, error) {
	res := &ClientStats{}
	err := p.db.GetContext(ctx, res,
		clientStatsQuery+" WHERE c.client_id = ? GROUP BY c.client_id", clientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get client stats")
	}
	return res, nil
}

// ListClientStats returns all clients, each merged with its join-derived
// session count.
func (p *SqliteProvider) ListClientStats(ctx context.Context) ([]ClientStats, error) {
	result := []ClientStats{}
	err := p.db.SelectContext(ctx, &result, clientStatsQuery+" GROUP BY c.client_id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list client stats")
	}
	return result, nil
}

// GetLocationStats aggregates session and client counts per location,
// excluding the N/A sentinel, most frequent first.
func (p *SqliteProvider) GetLocationStats(ctx context.Context) (*LocationStats, error) {
	stats := &LocationStats{
		SessionsByLocation: []LocationCount{},
		ClientsByLocation:  []LocationCount{},
	}

	err := p.db.SelectContext(ctx, &stats.SessionsByLocation,
		`SELECT start_location AS location, COUNT(*) AS count
		 FROM ping_sessions
		 WHERE start_location != ?
		 GROUP BY start_location
		 ORDER BY count DESC`, LocationNA)
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate sessions by location")
	}

	err = p.db.SelectContext(ctx, &stats.ClientsByLocation,
		`SELECT last_location AS location, COUNT(*) AS count
		 FROM clients
		 WHERE last_location != ?
		 GROUP BY last_location
		 ORDER BY count DESC`, LocationNA)
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate clients by location")
	}

	return stats, nil
}

func (p *SqliteProvider) Close() error {
	return p.db.Close()
}

// DB exposes the underlying handle for tests.
func (p *SqliteProvider) DB() *sqlx.DB {
	return p.db
}
