package server

import "github.com/opsdesk/reportgen/internal/report/model"

type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
}

type ReportResponse struct {
	Domain model.Domain `json:"domain"`
	Text   string       `json:"text"`
}

// GenerateRequest is the JSON form of a report submission. Image carries
// base64 encoded bytes.
type GenerateRequest struct {
	Fields map[string]string `json:"fields"`
	Image  []byte            `json:"image,omitempty"`
}

type DomainDTO struct {
	Domain        model.Domain      `json:"domain"`
	Title         string            `json:"title"`
	RequiresImage bool              `json:"requires_image"`
	Fields        []model.FieldSpec `json:"fields"`
}

func toDomainDTO(d model.Descriptor) DomainDTO {
	return DomainDTO{
		Domain:        d.Domain,
		Title:         d.Title,
		RequiresImage: d.RequiresImage,
		Fields:        d.Fields,
	}
}
