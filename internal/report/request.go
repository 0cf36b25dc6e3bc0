package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/agentoven/kpi-report/pkg/models"
)

// ErrEmptyData is returned when a request carries no KPI blobs.
var ErrEmptyData = errors.New("'data' cannot be empty")

// ErrMalformedBody is returned when the request body is not valid JSON.
var ErrMalformedBody = errors.New("invalid request body")

// ValidationError reports a request that parsed but has the wrong shape.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// DecodeRequest reads a ReportRequest from r. Numbers are kept as
// json.Number so they are echoed back exactly as the caller wrote them.
// Read errors from r, such as *http.MaxBytesError, stay reachable through
// errors.As.
func DecodeRequest(r io.Reader) (*models.ReportRequest, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var req models.ReportRequest
	if err := dec.Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ValidationError{
				Field:   typeErr.Field,
				Message: fmt.Sprintf("unexpected JSON %s", typeErr.Value),
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	// The body must hold exactly one JSON value.
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after the request object", ErrMalformedBody)
	}
	return &req, nil
}

// Validate checks the invariants of a report request. It runs before any
// model call is made.
func Validate(req *models.ReportRequest) error {
	if req == nil || len(req.Data) == 0 {
		return ErrEmptyData
	}
	for i, blob := range req.Data {
		if blob.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("data[%d].name", i), Message: "field required"}
		}
		if blob.Data == nil {
			return &ValidationError{Field: fmt.Sprintf("data[%d].data", i), Message: "field required"}
		}
		for j, record := range blob.Data {
			if record == nil {
				return &ValidationError{Field: fmt.Sprintf("data[%d].data[%d]", i, j), Message: "record must be an object"}
			}
		}
	}
	return nil
}
