package pingserver

import (
	"net/http"

	"github.com/probeworks/pingd/server/telemetry"
)

const nextHeartbeatSeconds = 3600

type heartbeatRequest struct {
	ClientID  string `json:"client_id"`
	DeviceID  string `json:"device_id"`
	AppStatus string `json:"app_status"`
	Location  string `json:"location"`
}

func (req *heartbeatRequest) toHeartbeat() telemetry.Heartbeat {
	status := req.AppStatus
	if status == "" {
		status = "unknown"
	}
	location := req.Location
	if location == "" {
		location = telemetry.LocationNA
	}
	return telemetry.Heartbeat{
		ClientID:  req.ClientID,
		DeviceID:  req.DeviceID,
		AppStatus: status,
		Location:  location,
	}
}

func (al *APIListener) handlePostHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := parseJSONBody(r, &req); err != nil {
		al.Errorf("heartbeat error: %v", err)
		al.jsonErrorResponse(w, http.StatusBadRequest, errInvalidJSON)
		return
	}

	hb := req.toHeartbeat()
	instruction, err := al.store.RecordHeartbeat(r.Context(), hb)
	if err != nil {
		al.Errorf("error storing heartbeat: %v", err)
		al.jsonErrorResponse(w, http.StatusInternalServerError, errInternal)
		return
	}

	al.Infof("Heartbeat from device: %s at location: %s", hb.DeviceID, hb.Location)

	response := map[string]interface{}{
		"heartbeat":                 "acknowledged",
		"server_status":             "online",
		"location_recorded":         hb.Location,
		"next_heartbeat_in_seconds": nextHeartbeatSeconds,
	}

	// attaching the instruction to the reply is gated per request,
	// independent of it being recorded in the heartbeat log
	if instruction != nil && al.selector.ShouldSend() {
		response["ping_host"] = instruction.Host
		response["ping_protocol"] = instruction.Protocol
		response["ping_duration_seconds"] = instruction.DurationSeconds
		response["ping_interval_ms"] = instruction.IntervalMS
		response["instruction_id"] = instruction.ID
	}

	al.writeJSONResponse(w, http.StatusOK, response)
}
