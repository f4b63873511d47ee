package middleware

// errorResponse is the small JSON envelope the dashboard's HTTP middleware
// returns on rejection. The dashboard's report endpoint does not use it; it
// returns its own status map.
type errorResponse struct {
	Success bool      `json:"success"`
	Error   *apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func errEnvelope(code, message string) errorResponse {
	return errorResponse{Success: false, Error: &apiError{Code: code, Message: message}}
}
