package pingserver

import (
	"net/http"

	"github.com/probeworks/pingd/share"
)

const (
	apiName    = "Ping App REST API with Location Support"
	apiVersion = "2.1.0"
)

func (al *APIListener) features() []string {
	features := []string{"location_tracking", "data_storage", "heartbeat_monitoring"}
	if al.selector != nil {
		features = append(features, "instruction_push")
	}
	return features
}

func (al *APIListener) handleGetAPIInfo(w http.ResponseWriter, r *http.Request) {
	endpoints := map[string]string{
		"GET /api":                 "API information",
		"GET /api/status":          "Server status",
		"GET /api/ping":            "Simple ping test",
		"GET /api/clients":         "List all clients",
		"GET /api/clients/{id}":    "Get specific client data",
		"POST /api/connect":        "Connect with device info and location",
		"POST /api/heartbeat":      "Send heartbeat signal with location",
		"POST /api/upload-session": "Upload ping session data with location",
	}
	if al.selector == nil {
		endpoints["GET /api/locations"] = "Get location statistics"
	}

	al.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"name":        apiName,
		"version":     apiVersion,
		"description": "REST API for Android Ping App with SQLite data storage and location tracking",
		"endpoints":   endpoints,
		"features":    al.features(),
	})
	al.Infof("API info requested from %s", share.RemoteIP(r))
}

func (al *APIListener) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	al.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":        "online",
		"message":       "Server is running with data storage and location support",
		"database":      "SQLite",
		"database_file": al.config.Server.DBPath,
		"client_ip":     share.RemoteIP(r),
		"features":      al.features(),
	})
	al.Infof("Status check from %s", share.RemoteIP(r))
}

func (al *APIListener) handleGetPing(w http.ResponseWriter, r *http.Request) {
	al.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"ping":      "pong",
		"client_ip": share.RemoteIP(r),
	})
	al.Debugf("Ping test from %s", share.RemoteIP(r))
}
