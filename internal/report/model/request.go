package model

// Submission is the raw input for one generation attempt, as received from
// the form boundary before any normalisation.
type Submission struct {
	SessionID string            `json:"session_id"`
	Domain    Domain            `json:"domain"`
	Fields    map[string]string `json:"fields"`
	Image     []byte            `json:"-"`
}

// Field is one normalised entry of a ReportRequest.
type Field struct {
	Key   string
	Label string
	Value string
}

// ReportRequest is the normalised input to one generation attempt. Fields
// follow the order declared by the domain schema and every declared field is
// present.
type ReportRequest struct {
	SessionID string
	Domain    Domain
	Fields    []Field
	Image     []byte
}

// Value returns the normalised value stored under key.
func (r ReportRequest) Value(key string) (string, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// HasImage reports whether an image payload was attached.
func (r ReportRequest) HasImage() bool {
	return len(r.Image) > 0
}
