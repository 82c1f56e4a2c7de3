package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// maxBodySize caps the size of a submitted receipt
const maxBodySize = 1 << 20

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes an {"error": message} response
func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// handleProcessReceipt handles POST /receipts/process
func (s *Server) handleProcessReceipt(w http.ResponseWriter, r *http.Request) {
	var raw RawReceipt
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&raw); err != nil {
		slog.Debug("Error decoding receipt", "error", err)
		writeError(w, "Invalid JSON in body", http.StatusBadRequest)
		return
	}

	s.respond(w, ProcessRequest{Receipt: &raw})
}

// handleGetPoints handles GET /receipts/{id}/points
func (s *Server) handleGetPoints(w http.ResponseWriter, r *http.Request) {
	s.respond(w, PointsRequest{ID: mux.Vars(r)["id"]})
}

// respond runs req through the service and writes the outcome
func (s *Server) respond(w http.ResponseWriter, req Request) {
	resp, err := s.service.Handle(req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case IsValidationError(err):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrReceiptNotFound):
		writeError(w, "Receipt not found", http.StatusNotFound)
	default:
		slog.Error("Error handling request", "request", fmt.Sprintf("%T", req), "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}
