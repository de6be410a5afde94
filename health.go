package flotilla

import (
	"encoding/json"
	"net/http"
	"time"
)

// Version of the flotilla services, set at build time.
var Version = "0.1.0"

type healthInfo struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	InstanceID string `json:"instance_id"`
	Version    string `json:"version"`
	Timestamp  string `json:"timestamp"`
}

// Health returns a liveness handler reporting the service name, instance
// and build version.
func Health(service, instanceID string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		res := healthInfo{
			Status:     "healthy",
			Service:    service,
			InstanceID: instanceID,
			Version:    Version,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(res); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
