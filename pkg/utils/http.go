package utils

import (
	"encoding/json"
	"net/http"
)

// JSONError writes {"error": message} with the given status code.
func JSONError(w http.ResponseWriter, status int, message string) {
	_ = JSONWrite(w, status, map[string]string{"error": message})
}

// JSONWrite marshals v and writes it with the given status code. Marshal
// failures degrade to a plain 500 so the handler never double-writes a
// header.
func JSONWrite(w http.ResponseWriter, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encoding failure", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_, err = w.Write(b)
	return err
}
