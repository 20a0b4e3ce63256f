package pkg

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

var ContentType = struct {
	JSON string
	Text string
}{
	JSON: "application/json",
	Text: "text/plain; charset=utf-8",
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteResponse(w http.ResponseWriter, contentType, message string, statusCode int) {
	WriteResponseBytes(w, contentType, []byte(message), statusCode)
}

func WriteResponseBytes(w http.ResponseWriter, contentType string, message []byte, statusCode int) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(statusCode)
	if _, err := w.Write(message); err != nil {
		log.Errorf("failed to write response [%s]: %s", message, err)
	}
}

func WriteResponseBytesOK(w http.ResponseWriter, contentType string, message []byte) {
	WriteResponseBytes(w, contentType, message, http.StatusOK)
}

func WriteJSONResponseOK(w http.ResponseWriter, message string) {
	WriteResponse(w, ContentType.JSON, message, http.StatusOK)
}

func WriteTextResponseOK(w http.ResponseWriter, message string) {
	WriteResponse(w, ContentType.Text, message, http.StatusOK)
}

// WriteJSON marshals v and writes it with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	respJson, err := json.Marshal(v)
	if err != nil {
		log.Errorf("failed to marshal response %T: %s", v, err)
		WriteJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	WriteResponseBytes(w, ContentType.JSON, respJson, statusCode)
}

// WriteJSONError writes {"error": message}, the error shape the web client expects.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	errJson, err := json.Marshal(ErrorResponse{Error: message})
	if err != nil {
		http.Error(w, message, statusCode)
		return
	}
	WriteResponseBytes(w, ContentType.JSON, errJson, statusCode)
}
