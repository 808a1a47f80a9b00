package handlers

import (
	"database/sql"
	"net/http"
)

// HealthCheck returns a simple JSON status; with a database handle it also
// reports connectivity and degrades to 503 when the ping fails.
func HealthCheck(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := map[string]string{"status": "ok"}
		status := http.StatusOK
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				response["status"] = "degraded"
				response["database"] = "unreachable"
				status = http.StatusServiceUnavailable
			} else {
				response["database"] = "ok"
			}
		}
		writeJSON(w, status, response)
	}
}
