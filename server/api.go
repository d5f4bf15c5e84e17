package pingserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/probeworks/pingd/share"
)

// writeJSONResponse sends payload with the uniform response headers. Every
// reply gets a timestamp field; CORS origin and exact Content-Length are set
// on every JSON response, not only on preflights.
func (al *APIListener) writeJSONResponse(w http.ResponseWriter, statusCode int, payload map[string]interface{}) {
	payload["timestamp"] = share.NowISO()

	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(statusCode)
	if _, err := w.Write(b); err != nil {
		al.Errorf("error writing response: %s", err)
	}
}

func (al *APIListener) jsonErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	al.writeJSONResponse(w, statusCode, map[string]interface{}{
		"error":       true,
		"status_code": statusCode,
		"message":     message,
	})
}

// parseJSONBody decodes the request body into dst. An empty body is treated
// as an empty object; malformed JSON is a client error.
func parseJSONBody(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, dst)
}

const errInvalidJSON = "Invalid JSON in request body"
const errInternal = "Internal server error"
