package pingserver

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/probeworks/pingd/share"
)

func (al *APIListener) handleGetClients(w http.ResponseWriter, r *http.Request) {
	clients, err := al.store.ListClientStats(r.Context())
	if err != nil {
		al.Errorf("error getting clients: %v", err)
		al.jsonErrorResponse(w, http.StatusInternalServerError, errInternal)
		return
	}

	al.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":        "success",
		"clients":       clients,
		"total_clients": len(clients),
	})
	al.Infof("Clients data requested from %s", share.RemoteIP(r))
}

func (al *APIListener) handleGetClient(w http.ResponseWriter, r *http.Request) {
	clientID := mux.Vars(r)["client_id"]

	client, err := al.store.GetClientStats(r.Context(), clientID)
	if err != nil {
		al.Errorf("error getting client data: %v", err)
		al.jsonErrorResponse(w, http.StatusInternalServerError, errInternal)
		return
	}
	if client == nil {
		al.jsonErrorResponse(w, http.StatusNotFound, fmt.Sprintf("Client %s not found", clientID))
		return
	}

	al.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"client": client,
	})
}

func (al *APIListener) handleGetLocations(w http.ResponseWriter, r *http.Request) {
	stats, err := al.store.GetLocationStats(r.Context())
	if err != nil {
		al.Errorf("error getting location stats: %v", err)
		al.jsonErrorResponse(w, http.StatusInternalServerError, errInternal)
		return
	}

	al.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":              "success",
		"location_statistics": stats,
	})
}
