// Package export turns stored report text into a downloadable artifact.
package export

import (
	errx "github.com/opsdesk/reportgen/internal/core/error"
	"github.com/opsdesk/reportgen/internal/metrics"
	"github.com/opsdesk/reportgen/internal/report/model"
)

const ContentType = "text/plain; charset=utf-8"

// NothingToExportMessage is returned when no text has been generated yet.
const NothingToExportMessage = "내보낼 보고서가 없습니다. 먼저 보고서를 생성하세요."

// Artifact is a plain-text file ready for download.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Build returns the stored text byte for byte under its export filename.
func Build(stored *model.StoredResult) (Artifact, error) {
	if stored == nil || stored.Text == "" {
		return Artifact{}, errx.NotFound(NothingToExportMessage)
	}
	name := stored.Filename
	if name == "" {
		name = stored.Domain.String() + ".txt"
	}
	metrics.ExportsTotal.WithLabelValues(stored.Domain.String()).Inc()
	return Artifact{
		Filename:    name,
		ContentType: ContentType,
		Data:        []byte(stored.Text),
	}, nil
}
