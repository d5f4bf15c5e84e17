package telemetry

import "strings"

// LocationNA is the sentinel stored whenever a location is not supplied.
// Location fields are never null or empty.
const LocationNA = "N/A"

// Client is a registered device/app installation. TotalSessions is a stored
// counter incremented once per successfully uploaded session; it is not
// recomputed from the sessions table.
type Client struct {
	ClientID       string `db:"client_id" json:"client_id"`
	DeviceID       string `db:"device_id" json:"device_id"`
	DeviceModel    string `db:"device_model" json:"device_model"`
	AndroidVersion string `db:"android_version" json:"android_version"`
	AppVersion     string `db:"app_version" json:"app_version"`
	FirstSeen      string `db:"first_seen" json:"first_seen"`
	LastSeen       string `db:"last_seen" json:"last_seen"`
	LastLocation   string `db:"last_location" json:"last_location"`
	TotalSessions  int    `db:"total_sessions" json:"total_sessions"`
}

// ClientStats is a client merged with the join-derived session count. The two
// counters may diverge and are exposed side by side, never reconciled.
type ClientStats struct {
	Client
	ActualSessions int `db:"actual_sessions" json:"actual_sessions"`
}

// DeviceInfo is the normalized payload of a connect request.
type DeviceInfo struct {
	DeviceID       string
	DeviceModel    string
	AndroidVersion string
	AppVersion     string
	Location       string
}

// ClientID derives the stable client key from the device id and model.
func ClientID(deviceID, deviceModel string) string {
	return deviceID + "_" + strings.ReplaceAll(deviceModel, " ", "_")
}

// Heartbeat is the normalized payload of a heartbeat request. Heartbeats are
// append-only log records.
type Heartbeat struct {
	ClientID  string `db:"client_id"`
	DeviceID  string `db:"device_id"`
	AppStatus string `db:"app_status"`
	Location  string `db:"location"`
}

// Session is one completed measurement run with aggregate statistics.
// Sessions are created atomically with their child results and never updated.
type Session struct {
	SessionID         string                 `db:"session_id" json:"session_id"`
	ClientID          string                 `db:"client_id" json:"client_id"`
	Host              string                 `db:"host" json:"host"`
	Protocol          string                 `db:"protocol" json:"protocol"`
	StartTime         string                 `db:"start_time" json:"start_time"`
	EndTime           string                 `db:"end_time" json:"end_time"`
	DurationSeconds   int                    `db:"duration_seconds" json:"duration_seconds"`
	PacketsSent       int                    `db:"packets_sent" json:"packets_sent"`
	PacketsReceived   int                    `db:"packets_received" json:"packets_received"`
	PacketLossPercent float64                `db:"packet_loss_percent" json:"packet_loss_percent"`
	AvgRTTMS          float64                `db:"avg_rtt_ms" json:"avg_rtt_ms"`
	MinRTTMS          float64                `db:"min_rtt_ms" json:"min_rtt_ms"`
	MaxRTTMS          float64                `db:"max_rtt_ms" json:"max_rtt_ms"`
	TotalBytes        int64                  `db:"total_bytes" json:"total_bytes"`
	AvgBandwidthBPS   float64                `db:"avg_bandwidth_bps" json:"avg_bandwidth_bps"`
	StartLocation     string                 `db:"start_location" json:"start_location"`
	EndLocation       string                 `db:"end_location" json:"end_location"`
	Settings          map[string]interface{} `db:"-" json:"settings,omitempty"`
	Results           []Result               `db:"-" json:"ping_results,omitempty"`
}

// Result is one probe attempt within a session. Sequence numbers are
// caller-supplied and not validated; duplicates and gaps are permitted.
type Result struct {
	SequenceNumber int     `db:"sequence_number" json:"sequence"`
	Success        bool    `db:"success" json:"success"`
	RTTMS          float64 `db:"rtt_ms" json:"rtt_ms"`
	Location       string  `db:"location" json:"location"`
	ErrorMessage   string  `db:"error_message" json:"error_message"`
	Timestamp      string  `db:"timestamp" json:"timestamp"`
}

type LocationCount struct {
	Location string `db:"location" json:"location"`
	Count    int    `db:"count" json:"count"`
}

type LocationStats struct {
	SessionsByLocation []LocationCount `json:"sessions_by_location"`
	ClientsByLocation  []LocationCount `json:"clients_by_location"`
}
