package telemetry

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeworks/pingd/db/sqlite"
	"github.com/probeworks/pingd/server/instructions"
	"github.com/probeworks/pingd/share/logger"
)

var testLog = logger.NewLogger("test", logger.LogOutput{File: os.Stdout}, logger.LogLevelDebug)

func newTestProvider(t *testing.T, selector *instructions.Selector) *SqliteProvider {
	t.Helper()
	p, err := NewSqliteProvider(t.TempDir()+"/ping_data.db", sqlite.DataSourceOptions{}, selector, testLog)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func testDeviceInfo() DeviceInfo {
	return DeviceInfo{
		DeviceID:       "abc123",
		DeviceModel:    "Pixel 7",
		AndroidVersion: "14",
		AppVersion:     "2.1.0",
		Location:       "Paris",
	}
}

func testSession(clientID, sessionID string) Session {
	return Session{
		SessionID:         sessionID,
		ClientID:          clientID,
		Host:              "8.8.8.8",
		Protocol:          "icmp",
		StartTime:         "2025-06-01T10:00:00Z",
		EndTime:           "2025-06-01T10:01:00Z",
		DurationSeconds:   60,
		PacketsSent:       60,
		PacketsReceived:   58,
		PacketLossPercent: 3.33,
		AvgRTTMS:          24.5,
		MinRTTMS:          18.1,
		MaxRTTMS:          80.2,
		TotalBytes:        3840,
		AvgBandwidthBPS:   512,
		StartLocation:     "Paris",
		EndLocation:       "Lyon",
		Settings:          map[string]interface{}{"packet_size": float64(64)},
	}
}

func TestUpsertClientIdempotent(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, nil)

	id1, err := p.UpsertClient(ctx, testDeviceInfo())
	require.NoError(t, err)
	assert.Equal(t, "abc123_Pixel_7", id1)

	first, err := p.GetClientStats(ctx, id1)
	require.NoError(t, err)
	require.NotNil(t, first)

	info := testDeviceInfo()
	info.AppVersion = "2.2.0"
	info.Location = "Berlin"
	id2, err := p.UpsertClient(ctx, info)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	got, err := p.GetClientStats(ctx, id1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.FirstSeen, got.FirstSeen)
	assert.Equal(t, 0, got.TotalSessions, "connect alone must not change the session counter")
	assert.Equal(t, "2.2.0", got.AppVersion)
	assert.Equal(t, "Berlin", got.LastLocation)
}

func TestSessionCounterMonotonic(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, nil)

	clientID, err := p.UpsertClient(ctx, testDeviceInfo())
	require.NoError(t, err)

	const n = 3
	for i := 0; i < n; i++ {
		s := testSession(clientID, "session-"+string(rune('a'+i)))
		require.NoError(t, p.StoreSession(ctx, s))
	}

	got, err := p.GetClientStats(ctx, clientID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, n, got.TotalSessions)
	assert.Equal(t, n, got.ActualSessions)
	assert.Equal(t, "Lyon", got.LastLocation)
}

func TestCountersExposedIndependently(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, nil)

	clientID, err := p.UpsertClient(ctx, testDeviceInfo())
	require.NoError(t, err)
	require.NoError(t, p.StoreSession(ctx, testSession(clientID, "s1")))

	// force the stored counter out of sync with the join-derived count
	_, err = p.DB().Exec("UPDATE clients SET total_sessions = 5 WHERE client_id = ?", clientID)
	require.NoError(t, err)

	got, err := p.GetClientStats(ctx, clientID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.TotalSessions)
	assert.Equal(t, 1, got.ActualSessions)
}

func TestStoreSessionForUnknownClient(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, nil)

	// sessions for unregistered clients are accepted, not rejected
	require.NoError(t, p.StoreSession(ctx, testSession("ghost_Phone", "s1")))

	var count int
	require.NoError(t, p.DB().Get(&count, "SELECT COUNT(*) FROM ping_sessions"))
	assert.Equal(t, 1, count)
}

func TestStoreSessionDuplicateIDRollsBack(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, nil)

	clientID, err := p.UpsertClient(ctx, testDeviceInfo())
	require.NoError(t, err)

	s := testSession(clientID, "dup")
	s.Results = []Result{
		{SequenceNumber: 1, Success: true, RTTMS: 20.0, Location: "Paris", Timestamp: "2025-06-01T10:00:01Z"},
	}
	require.NoError(t, p.StoreSession(ctx, s))

	err = p.StoreSession(ctx, s)
	require.Error(t, err)
	assert.True(t, IsConstraintError(err))

	got, err := p.GetClientStats(ctx, clientID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.TotalSessions, "failed upload must not bump the counter")

	var results int
	require.NoError(t, p.DB().Get(&results, "SELECT COUNT(*) FROM ping_results"))
	assert.Equal(t, 1, results)
}

func TestStoreSessionWithResults(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, nil)

	s := testSession("abc123_Pixel_7", "s1")
	s.Results = []Result{
		{SequenceNumber: 1, Success: true, RTTMS: 21.0, Location: "Paris", Timestamp: "2025-06-01T10:00:01Z"},
		{SequenceNumber: 1, Success: false, Location: "N/A", ErrorMessage: "timeout", Timestamp: "2025-06-01T10:00:02Z"},
		{SequenceNumber: 5, Success: true, RTTMS: 19.2, Location: "Paris", Timestamp: "2025-06-01T10:00:03Z"},
	}
	// duplicate and gapped sequence numbers are stored as-is
	require.NoError(t, p.StoreSession(ctx, s))

	var results []Result
	require.NoError(t, p.DB().Select(&results,
		"SELECT sequence_number, success, rtt_ms, location, error_message, timestamp FROM ping_results ORDER BY id"))
	require.Len(t, results, 3)
	assert.Equal(t, 1, results[0].SequenceNumber)
	assert.Equal(t, 1, results[1].SequenceNumber)
	assert.Equal(t, 5, results[2].SequenceNumber)
	assert.Equal(t, "timeout", results[1].ErrorMessage)
}

func TestRecordHeartbeat(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, nil)

	clientID, err := p.UpsertClient(ctx, testDeviceInfo())
	require.NoError(t, err)

	in, err := p.RecordHeartbeat(ctx, Heartbeat{
		ClientID:  clientID,
		DeviceID:  "abc123",
		AppStatus: "active",
		Location:  "Madrid",
	})
	require.NoError(t, err)
	assert.Nil(t, in, "no selector configured")

	got, err := p.GetClientStats(ctx, clientID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Madrid", got.LastLocation)

	var count int
	require.NoError(t, p.DB().Get(&count, "SELECT COUNT(*) FROM heartbeats"))
	assert.Equal(t, 1, count)
}

func TestRecordHeartbeatWithoutClientID(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, nil)

	_, err := p.RecordHeartbeat(ctx, Heartbeat{AppStatus: "unknown", Location: LocationNA})
	require.NoError(t, err)

	var count int
	require.NoError(t, p.DB().Get(&count, "SELECT COUNT(*) FROM heartbeats"))
	assert.Equal(t, 1, count, "heartbeat without client id is still logged")
}

func TestRecordHeartbeatWithSelector(t *testing.T) {
	ctx := context.Background()
	selector, err := instructions.NewSelector(instructions.DefaultInstructions, 0.9)
	require.NoError(t, err)
	p := newTestProvider(t, selector)

	in, err := p.RecordHeartbeat(ctx, Heartbeat{DeviceID: "abc123", AppStatus: "active", Location: LocationNA})
	require.NoError(t, err)
	require.NotNil(t, in)
	assert.Equal(t, "8.8.8.8", in.Host)

	var stored string
	require.NoError(t, p.DB().Get(&stored, "SELECT instruction_sent FROM heartbeats"))
	var echoed instructions.Instruction
	require.NoError(t, json.Unmarshal([]byte(stored), &echoed))
	assert.Equal(t, in.ID, echoed.ID)
	assert.Equal(t, in.Host, echoed.Host)
}

func TestGetClientStatsNotFound(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, nil)

	got, err := p.GetClientStats(ctx, "unknown_id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListClientStats(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, nil)

	_, err := p.UpsertClient(ctx, testDeviceInfo())
	require.NoError(t, err)
	other := testDeviceInfo()
	other.DeviceID = "xyz789"
	other.DeviceModel = "Galaxy S24"
	_, err = p.UpsertClient(ctx, other)
	require.NoError(t, err)

	all, err := p.ListClientStats(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetLocationStats(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, nil)

	info := testDeviceInfo()
	clientID, err := p.UpsertClient(ctx, info)
	require.NoError(t, err)

	s1 := testSession(clientID, "s1")
	s2 := testSession(clientID, "s2")
	s3 := testSession(clientID, "s3")
	s3.StartLocation = "Lyon"
	s4 := testSession(clientID, "s4")
	s4.StartLocation = LocationNA
	for _, s := range []Session{s1, s2, s3, s4} {
		require.NoError(t, p.StoreSession(ctx, s))
	}

	stats, err := p.GetLocationStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats.SessionsByLocation, 2, "N/A must be excluded")
	assert.Equal(t, LocationCount{Location: "Paris", Count: 2}, stats.SessionsByLocation[0])
	assert.Equal(t, LocationCount{Location: "Lyon", Count: 1}, stats.SessionsByLocation[1])
	require.Len(t, stats.ClientsByLocation, 1)
	assert.Equal(t, "Lyon", stats.ClientsByLocation[0].Location, "session upload moves the client location")
}

func TestAdditiveColumnUpgrade(t *testing.T) {
	dbPath := t.TempDir() + "/ping_data.db"

	// lay down a legacy schema without the location columns
	legacy, err := sqlx.Connect("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = legacy.Exec(`
		CREATE TABLE clients (
			client_id TEXT PRIMARY KEY,
			device_id TEXT,
			device_model TEXT,
			android_version TEXT,
			app_version TEXT,
			first_seen TEXT,
			last_seen TEXT,
			total_sessions INTEGER DEFAULT 0
		);
		CREATE TABLE ping_sessions (
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
			settings_json TEXT
		);
		CREATE TABLE ping_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT,
			timestamp TEXT,
			sequence_number INTEGER,
			success BOOLEAN,
			rtt_ms REAL,
			error_message TEXT
		);
		CREATE TABLE heartbeats (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_id TEXT,
			device_id TEXT,
			app_status TEXT,
			location TEXT,
			timestamp TEXT
		);
		INSERT INTO clients (client_id, device_id, device_model, android_version, app_version, first_seen, last_seen, total_sessions)
		VALUES ('old_Phone', 'old', 'Phone', '13', '1.0.0', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z', 7);
	`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	p, err := NewSqliteProvider(dbPath, sqlite.DataSourceOptions{}, nil, testLog)
	require.NoError(t, err)
	defer p.Close()

	got, err := p.GetClientStats(context.Background(), "old_Phone")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 7, got.TotalSessions, "existing rows survive the upgrade")
	assert.Equal(t, LocationNA, got.LastLocation, "added column carries the sentinel default")
}
