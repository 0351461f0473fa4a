package errors

import (
	"encoding/json"
	"net/http"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RateLimitError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

// QuotaError names the party whose budget is full, so the client can tell
// "buy a pack" apart from "the other side is out of slots".
type QuotaError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	SlotKind  string `json:"slot_kind"`
	Limit     int    `json:"limit"`
	ProfileID int64  `json:"profile_id"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
