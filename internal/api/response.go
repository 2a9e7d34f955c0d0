package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

type functionResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Connected   bool   `json:"connected"`
	ReturnValue int    `json:"return_value"`
}

type coreInfo struct {
	DeviceID  string `json:"deviceID"`
	Connected bool   `json:"connected"`
}

type variableResponse struct {
	Cmd      string   `json:"cmd"`
	Name     string   `json:"name"`
	Result   int      `json:"result"`
	CoreInfo coreInfo `json:"coreInfo"`
}

type deviceInfo struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Connected bool              `json:"connected"`
	Variables map[string]string `json:"variables"`
	Functions []string          `json:"functions"`
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, errorResponse{Error: code, Description: description})
}
