// Package pingdb holds the schema migrations for the telemetry database.
// The assets are kept as in-source SQL so the migration source stays a plain
// name -> bytes lookup compatible with the go-bindata migrate source.
package pingdb

import (
	"fmt"
	"sort"
)

const initUp = `
CREATE TABLE IF NOT EXISTS clients (
    client_id TEXT PRIMARY KEY,
    device_id TEXT,
    device_model TEXT,
    android_version TEXT,
    app_version TEXT,
    first_seen TEXT,
    last_seen TEXT,
    last_location TEXT DEFAULT 'N/A',
    total_sessions INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ping_sessions (
    session_id TEXT PRIMARY KEY,
    client_id TEXT,
    host TEXT,
    protocol TEXT,
    start_time TEXT,
    end_time TEXT,
    duration_seconds INTEGER,
    packets_sent INTEGER,
    packets_received INTEGER,
    packet_loss_percent REAL,
    avg_rtt_ms REAL,
    min_rtt_ms REAL,
    max_rtt_ms REAL,
    total_bytes BIGINT,
    avg_bandwidth_bps REAL,
    start_location TEXT DEFAULT 'N/A',
    end_location TEXT DEFAULT 'N/A',
    settings_json TEXT,
    FOREIGN KEY (client_id) REFERENCES clients (client_id)
);

CREATE TABLE IF NOT EXISTS ping_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT,
    timestamp TEXT,
    sequence_number INTEGER,
    success BOOLEAN,
    rtt_ms REAL,
    location TEXT DEFAULT 'N/A',
    error_message TEXT,
    FOREIGN KEY (session_id) REFERENCES ping_sessions (session_id)
);

CREATE TABLE IF NOT EXISTS heartbeats (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    client_id TEXT,
    device_id TEXT,
    app_status TEXT,
    location TEXT DEFAULT 'N/A',
    timestamp TEXT,
    instruction_sent TEXT,
    FOREIGN KEY (client_id) REFERENCES clients (client_id)
);
`

const initDown = `
DROP TABLE IF EXISTS heartbeats;
DROP TABLE IF EXISTS ping_results;
DROP TABLE IF EXISTS ping_sessions;
DROP TABLE IF EXISTS clients;
`

var assets = map[string]string{
	"001_init.up.sql":   initUp,
	"001_init.down.sql": initDown,
}

func AssetNames() []string {
	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Asset(name string) ([]byte, error) {
	sql, ok := assets[name]
	if !ok {
		return nil, fmt.Errorf("asset %s not found", name)
	}
	return []byte(sql), nil
}
