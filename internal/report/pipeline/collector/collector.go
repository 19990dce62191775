// Package collector turns raw form values into a normalised ReportRequest.
package collector

import (
	"fmt"
	"slices"
	"strings"

	errx "github.com/opsdesk/reportgen/internal/core/error"
	"github.com/opsdesk/reportgen/internal/report/model"
	logx "github.com/opsdesk/reportgen/pkg/logger"
)

// MissingImageMessage is returned when an image-backed report has no upload.
const MissingImageMessage = "사진을 업로드해주세요."

// Collect normalises sub against the schema of desc.
//
// Optional fields are trimmed and replaced by their sentinel when empty.
// Choice fields default to their first option and reject anything outside
// the option set. Required text fields and required images fail with a
// validation error.
func Collect(desc model.Descriptor, sub model.Submission) (model.ReportRequest, error) {
	if sub.Domain != "" && sub.Domain != desc.Domain {
		return model.ReportRequest{}, errx.Validation(fmt.Sprintf("요청한 보고서 유형(%s)이 일치하지 않습니다.", sub.Domain))
	}

	req := model.ReportRequest{
		SessionID: sub.SessionID,
		Domain:    desc.Domain,
		Fields:    make([]model.Field, 0, len(desc.Fields)),
	}

	for _, spec := range desc.Fields {
		value, err := normalize(spec, sub.Fields[spec.Key])
		if err != nil {
			return model.ReportRequest{}, err
		}
		req.Fields = append(req.Fields, model.Field{Key: spec.Key, Label: spec.Label, Value: value})
	}

	for key := range sub.Fields {
		if _, ok := desc.Field(key); !ok {
			logx.Debug().Str("domain", desc.Domain.String()).Str("field", key).Msg("ignoring undeclared form field")
		}
	}

	if desc.RequiresImage {
		if len(sub.Image) == 0 {
			return model.ReportRequest{}, errx.Validation(MissingImageMessage)
		}
		req.Image = sub.Image
	}

	return req, nil
}

func normalize(spec model.FieldSpec, raw string) (string, error) {
	value := strings.TrimSpace(raw)

	switch spec.Kind {
	case model.FieldChoice:
		if value == "" && len(spec.Options) > 0 {
			return spec.Options[0], nil
		}
		if !slices.Contains(spec.Options, value) {
			return "", errx.Validation(fmt.Sprintf("%s: 선택할 수 없는 값입니다 (%q).", spec.Label, value))
		}
		return value, nil
	case model.FieldText:
		if value == "" {
			return "", errx.Validation(fmt.Sprintf("%s을(를) 입력해주세요.", spec.Label))
		}
		return value, nil
	case model.FieldOptionalText, model.FieldNumeric:
		if value == "" {
			return spec.Sentinel, nil
		}
		return value, nil
	default:
		return "", fmt.Errorf("field %s: unsupported kind %q", spec.Key, spec.Kind)
	}
}
