package pingserver

import (
	"net/http"

	"github.com/probeworks/pingd/server/telemetry"
)

type connectRequest struct {
	DeviceID       string `json:"device_id"`
	DeviceModel    string `json:"device_model"`
	AndroidVersion string `json:"android_version"`
	AppVersion     string `json:"app_version"`
	Location       string `json:"location"`
}

// toDeviceInfo applies the named defaults: optional fields stay empty
// strings, a missing location becomes the N/A sentinel.
func (req *connectRequest) toDeviceInfo() telemetry.DeviceInfo {
	location := req.Location
	if location == "" {
		location = telemetry.LocationNA
	}
	return telemetry.DeviceInfo{
		DeviceID:       req.DeviceID,
		DeviceModel:    req.DeviceModel,
		AndroidVersion: req.AndroidVersion,
		AppVersion:     req.AppVersion,
		Location:       location,
	}
}

func (al *APIListener) handlePostConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := parseJSONBody(r, &req); err != nil {
		al.Errorf("connection error: %v", err)
		al.jsonErrorResponse(w, http.StatusBadRequest, errInvalidJSON)
		return
	}
	if req.DeviceID == "" {
		al.jsonErrorResponse(w, http.StatusBadRequest, "Missing required field: device_id")
		return
	}

	info := req.toDeviceInfo()
	clientID, err := al.store.UpsertClient(r.Context(), info)
	if err != nil {
		al.Errorf("error registering client: %v", err)
		al.jsonErrorResponse(w, http.StatusInternalServerError, "Failed to register client")
		return
	}

	al.Infof("Client registered/updated: %s at location: %s", clientID, info.Location)
	al.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":            "connected",
		"message":           "Device registered successfully with location",
		"client_id":         clientID,
		"location_recorded": info.Location,
	})
}
