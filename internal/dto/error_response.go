package dto

// ErrorResponse is the JSON shape of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
}
