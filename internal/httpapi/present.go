package httpapi

import (
	"errors"
	"net/http"

	"dbcheck/internal/check"
	"dbcheck/internal/probe"
	"dbcheck/internal/profile"
)

// checkResponse is the body of every check endpoint, success or not.
type checkResponse struct {
	check.Result
	Details map[string]string `json:"details,omitempty"`
}

// writeResult maps a check outcome onto a status code and body. The message
// is built from the error category and text only, never from the profile.
func (s *Server) writeResult(w http.ResponseWriter, res check.Result, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, checkResponse{Result: res})
		return
	}
	if res.Timestamp.IsZero() {
		res.Timestamp = s.now().UTC()
	}
	res.Success = false

	var (
		validation *profile.ValidationError
		configErr  *profile.ConfigurationError
		probeErr   *probe.Error
	)
	switch {
	case errors.As(err, &validation):
		res.Message = validation.Error()
		writeJSON(w, http.StatusBadRequest, checkResponse{Result: res, Details: validation.Fields})
	case errors.As(err, &configErr):
		res.Message = configErr.Error()
		writeJSON(w, http.StatusInternalServerError, checkResponse{Result: res})
	case errors.As(err, &probeErr):
		res.Message = check.FailureMessage(probeErr)
		writeJSON(w, statusForCategory(probeErr.Category), checkResponse{Result: res})
	default:
		res.Message = check.FailureMessage(err)
		writeJSON(w, http.StatusInternalServerError, checkResponse{Result: res})
	}
}

// statusForCategory: transport failures are 503, everything else the server
// could not get past is 500.
func statusForCategory(c probe.Category) int {
	if c == probe.Operational {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
