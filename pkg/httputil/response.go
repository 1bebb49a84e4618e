// Package httputil provides HTTP handler utilities for the response envelope,
// JSON decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"
)

// Generic messages sent in place of internal error details
const (
	MessageInternalError      = "Internal server error"
	MessageForbidden          = "Forbidden"
	MessageNotFound           = "Not found"
	MessageSomethingWentWrong = "Something went wrong"
)

// Envelope is the body of every successful response
type Envelope struct {
	Code       int         `json:"code"`
	Data       interface{} `json:"data"`
	Pagination interface{} `json:"pagination,omitempty"`
}

// ErrorBody carries either one message or a list of messages
type ErrorBody struct {
	Message interface{} `json:"message"`
}

// ErrorEnvelope is the body of every failed response
type ErrorEnvelope struct {
	Code  int       `json:"code"`
	Error ErrorBody `json:"error"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteData writes data wrapped in the success envelope
func WriteData(w http.ResponseWriter, status int, data interface{}) error {
	return WriteJSON(w, status, Envelope{Code: status, Data: data})
}

// WritePage writes one page of data with its pagination block
func WritePage(w http.ResponseWriter, status int, data, pagination interface{}) error {
	return WriteJSON(w, status, Envelope{Code: status, Data: data, Pagination: pagination})
}

// WriteCreated writes a successful creation response (201 Created)
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteData(w, http.StatusCreated, data)
}

// WriteSuccess writes a successful response (200 OK)
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteData(w, http.StatusOK, data)
}

// WriteError writes err's text in the error envelope. Only use it for
// errors whose text is meant for clients.
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteErrorMessage(w, status, err.Error())
}

// WriteErrorMessage writes a single message in the error envelope
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorEnvelope{Code: status, Error: ErrorBody{Message: message}})
}

// WriteErrorMessages writes a list of messages in the error envelope
func WriteErrorMessages(w http.ResponseWriter, status int, messages []string) {
	WriteJSON(w, status, ErrorEnvelope{Code: status, Error: ErrorBody{Message: messages}})
}

// WriteValidationError writes field validation failures (412 Precondition Failed)
func WriteValidationError(w http.ResponseWriter, messages []string) {
	WriteErrorMessages(w, http.StatusPreconditionFailed, messages)
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a forbidden error (403)
func WriteForbidden(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusForbidden, MessageForbidden)
}

// WriteNotFoundError writes a not found error response (404)
func WriteNotFoundError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusNotFound, MessageNotFound)
}

// WriteTooManyRequests writes a rate limit error (429)
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusTooManyRequests, message)
}

// WriteServiceUnavailable writes a service unavailable error (503)
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusServiceUnavailable, message)
}

// WriteInternalError writes a generic 500. The cause is never sent to the
// client.
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, MessageInternalError)
}
