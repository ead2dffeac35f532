package server

import (
	"encoding/json"
	"net/http"

	"github.com/hazyhaar/parsekit/parser"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err to its category's status and name.
func writeError(w http.ResponseWriter, err error) {
	cat := parser.CategoryOf(err)
	writeJSON(w, cat.HTTPStatus, map[string]string{"error": err.Error(), "kind": cat.Name})
}
