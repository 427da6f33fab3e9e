package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/karming-leong/datacentric-assingment/internal/apperr"
)

const errorMessageInternal = apperr.MsgInternal

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindAuthentication, apperr.KindCredentials:
		return http.StatusUnauthorized
	case apperr.KindDuplicate, apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError renders err with its public message only. Causes of server
// errors are logged, and echoed under "message" in debug mode.
func (r *Router) writeAppError(w http.ResponseWriter, req *http.Request, err error) {
	appErr := apperr.From(err)
	status := statusFor(appErr.Kind)
	message := appErr.Message
	if message == "" {
		message = errorMessageInternal
	}
	body := map[string]string{"error": message}

	switch {
	case status >= http.StatusInternalServerError:
		r.logger.Error("request failed", "kind", appErr.Kind.String(), "error", appErr.Cause, "path", req.URL.Path)
		if r.debug && appErr.Cause != nil {
			body["message"] = appErr.Cause.Error()
		}
	case status == http.StatusUnauthorized && appErr.Cause != nil:
		r.logger.Warn("authentication rejected", "kind", appErr.Kind.String(), "reason", appErr.Cause, "path", req.URL.Path)
	}
	writeJSON(w, status, body)
}
