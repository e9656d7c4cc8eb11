package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	applog "platecost/internal/log"
	"platecost/internal/service"
)

const maxBodyBytes = 1 << 20

type messageResponse struct {
	Msg string `json:"msg"`
}

var errEmptyBody = errors.New("request body is empty")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Msg: message})
}

// statusFor maps a service error kind to the HTTP status reported to clients.
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindInvalidInput, service.KindDuplicateName:
		return http.StatusBadRequest
	case service.KindNotFound, service.KindReferentialIntegrity:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := service.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		applog.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		applog.Debug(r.Context(), "request rejected", "kind", kind.String(), "status", status, "error", err)
	}
	writeJSONError(w, status, service.MessageOf(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// readPayload decodes the body into dst and answers 400 itself when that fails.
func readPayload(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		applog.Debug(r.Context(), "invalid request payload", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// pathID reads a positive numeric route variable and answers 400 itself when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := strings.TrimSpace(mux.Vars(r)[name])
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || value == 0 {
		applog.Debug(r.Context(), "invalid identifier", "name", name, "value", raw)
		writeJSONError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(value), true
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}
