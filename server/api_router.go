package pingserver

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (al *APIListener) initRouter() {
	r := mux.NewRouter()

	r.HandleFunc("/", al.handleGetAPIInfo).Methods(http.MethodGet)
	r.HandleFunc("/api", al.handleGetAPIInfo).Methods(http.MethodGet)
	r.HandleFunc("/api/status", al.handleGetStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/ping", al.handleGetPing).Methods(http.MethodGet)
	r.HandleFunc("/api/clients", al.handleGetClients).Methods(http.MethodGet)
	r.HandleFunc("/api/clients/{client_id}", al.handleGetClient).Methods(http.MethodGet)
	if al.selector == nil {
		r.HandleFunc("/api/locations", al.handleGetLocations).Methods(http.MethodGet)
	}
	r.HandleFunc("/api/connect", al.handlePostConnect).Methods(http.MethodPost)
	r.HandleFunc("/api/heartbeat", al.handlePostHeartbeat).Methods(http.MethodPost)
	r.HandleFunc("/api/upload-session", al.handlePostUploadSession).Methods(http.MethodPost)

	// CORS preflight on any path
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(al.handlePreflight)

	r.NotFoundHandler = http.HandlerFunc(al.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(al.handleNotFound)

	al.router = r
}

func (al *APIListener) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusOK)
}

func (al *APIListener) handleNotFound(w http.ResponseWriter, r *http.Request) {
	al.jsonErrorResponse(w, http.StatusNotFound, "Endpoint not found")
}
