package pingserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/probeworks/pingd/server/telemetry"
)

// requiredSessionFields is checked in order; validation short-circuits on the
// first missing field.
var requiredSessionFields = []string{
	"session_id",
	"client_id",
	"host",
	"protocol",
	"start_time",
	"end_time",
	"packets_sent",
	"packets_received",
}

type uploadSessionRequest struct {
	SessionID         string                 `json:"session_id"`
	ClientID          string                 `json:"client_id"`
	Host              string                 `json:"host"`
	Protocol          string                 `json:"protocol"`
	StartTime         string                 `json:"start_time"`
	EndTime           string                 `json:"end_time"`
	DurationSeconds   int                    `json:"duration_seconds"`
	PacketsSent       int                    `json:"packets_sent"`
	PacketsReceived   int                    `json:"packets_received"`
	PacketLossPercent float64                `json:"packet_loss_percent"`
	AvgRTTMS          float64                `json:"avg_rtt_ms"`
	MinRTTMS          float64                `json:"min_rtt_ms"`
	MaxRTTMS          float64                `json:"max_rtt_ms"`
	TotalBytes        int64                  `json:"total_bytes"`
	AvgBandwidthBPS   float64                `json:"avg_bandwidth_bps"`
	StartLocation     string                 `json:"start_location"`
	EndLocation       string                 `json:"end_location"`
	Settings          map[string]interface{} `json:"settings"`
	Results           []uploadResultRequest  `json:"ping_results"`
}

type uploadResultRequest struct {
	Sequence     int     `json:"sequence"`
	Success      bool    `json:"success"`
	RTTMS        float64 `json:"rtt_ms"`
	Location     string  `json:"location"`
	ErrorMessage string  `json:"error_message"`
	Timestamp    string  `json:"timestamp"`
}

func (req *uploadSessionRequest) toSession() telemetry.Session {
	startLocation := req.StartLocation
	if startLocation == "" {
		startLocation = telemetry.LocationNA
	}
	endLocation := req.EndLocation
	if endLocation == "" {
		endLocation = telemetry.LocationNA
	}
	settings := req.Settings
	if settings == nil {
		settings = map[string]interface{}{}
	}

	results := make([]telemetry.Result, 0, len(req.Results))
	for _, r := range req.Results {
		location := r.Location
		if location == "" {
			location = telemetry.LocationNA
		}
		results = append(results, telemetry.Result{
			SequenceNumber: r.Sequence,
			Success:        r.Success,
			RTTMS:          r.RTTMS,
			Location:       location,
			ErrorMessage:   r.ErrorMessage,
			Timestamp:      r.Timestamp,
		})
	}

	return telemetry.Session{
		SessionID:         req.SessionID,
		ClientID:          req.ClientID,
		Host:              req.Host,
		Protocol:          req.Protocol,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		DurationSeconds:   req.DurationSeconds,
		PacketsSent:       req.PacketsSent,
		PacketsReceived:   req.PacketsReceived,
		PacketLossPercent: req.PacketLossPercent,
		AvgRTTMS:          req.AvgRTTMS,
		MinRTTMS:          req.MinRTTMS,
		MaxRTTMS:          req.MaxRTTMS,
		TotalBytes:        req.TotalBytes,
		AvgBandwidthBPS:   req.AvgBandwidthBPS,
		StartLocation:     startLocation,
		EndLocation:       endLocation,
		Settings:          settings,
		Results:           results,
	}
}

func (al *APIListener) handlePostUploadSession(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		al.Errorf("upload error: %v", err)
		al.jsonErrorResponse(w, http.StatusBadRequest, errInvalidJSON)
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		al.Errorf("upload error: %v", err)
		al.jsonErrorResponse(w, http.StatusBadRequest, errInvalidJSON)
		return
	}
	for _, field := range requiredSessionFields {
		if _, ok := raw[field]; !ok {
			al.jsonErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Missing required field: %s", field))
			return
		}
	}

	var req uploadSessionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		al.Errorf("upload error: %v", err)
		al.jsonErrorResponse(w, http.StatusBadRequest, errInvalidJSON)
		return
	}

	session := req.toSession()
	if err := al.store.StoreSession(r.Context(), session); err != nil {
		al.Errorf("error storing session data: %v", err)
		al.jsonErrorResponse(w, http.StatusInternalServerError, "Failed to store session data")
		return
	}

	al.Infof("Session data stored: %s from %s (Location: %s -> %s)",
		session.SessionID, session.ClientID, session.StartLocation, session.EndLocation)

	al.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":         "success",
		"message":        "Session data uploaded successfully with location",
		"session_id":     session.SessionID,
		"start_location": session.StartLocation,
		"end_location":   session.EndLocation,
	})
}
