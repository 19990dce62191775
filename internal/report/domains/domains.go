// Package domains declares the report types served by the pipeline.
package domains

import (
	_ "embed"
	"regexp"
	"strings"

	"github.com/opsdesk/reportgen/internal/report/model"
)

const (
	// SentinelUnknown marks information the caller did not provide.
	SentinelUnknown = "미상"
	// SentinelNone marks an empty notes-style field.
	SentinelNone = "없음"
)

var (
	//go:embed template/facility_inspection.txt
	facilityInspectionInstructions string
	//go:embed template/incident_report.txt
	incidentReportInstructions string
	//go:embed template/workshop_plan.txt
	workshopPlanInstructions string
	//go:embed template/operational_summary.txt
	operationalSummaryInstructions string
)

var registry = map[model.Domain]model.Descriptor{
	model.FacilityInspection: {
		Domain: model.FacilityInspection,
		Title:  "시설물 점검 보고서",
		Fields: []model.FieldSpec{
			{Key: "facility_type", Label: "시설물 종류", Kind: model.FieldChoice, Options: []string{
				"포장(노면)", "차선/노면표지", "가드레일/방호벽", "방음벽", "교량/구조물", "배수시설", "표지판/부대시설", "기타",
			}},
			{Key: "location", Label: "위치", Kind: model.FieldOptionalText, Sentinel: SentinelUnknown, Placeholder: "예) 천안→논산 34km, OOIC 인근"},
			{Key: "inspected_at", Label: "일시", Kind: model.FieldOptionalText, Sentinel: SentinelUnknown, Placeholder: "예) 2026-02-18 10:20"},
			{Key: "notes", Label: "현장 메모", Kind: model.FieldOptionalText, Sentinel: SentinelNone, Multiline: true, Placeholder: "예) 야간에 반사도 저하 민원, 균열 확대 의심, 누수 흔적 등"},
		},
		RequiresImage: true,
		Instructions:  strings.TrimSpace(facilityInspectionInstructions),
		Directive:     "업로드된 사진과 위 정보를 바탕으로 지정된 형식의 ‘시설물 점검 보고서’를 작성하고, 불확실한 부분은 '현장 확인 필요'로 표기해줘.",
		ExportName:    fixedName("facility_inspection_report.txt"),
	},
	model.IncidentReport: {
		Domain: model.IncidentReport,
		Title:  "사고 상황 보고서",
		Fields: []model.FieldSpec{
			{Key: "incident_type", Label: "사고 유형", Kind: model.FieldChoice, Options: []string{
				"추돌", "단독 사고", "차량 화재", "낙하물", "보행자 사고", "기타",
			}},
			{Key: "direction", Label: "진행 방향", Kind: model.FieldChoice, Options: []string{
				"천안 → 논산", "논산 → 천안", "양방향",
			}},
			{Key: "location", Label: "위치", Kind: model.FieldOptionalText, Sentinel: SentinelUnknown, Placeholder: "예) 48.5km 지점, OO터널 입구"},
			{Key: "time", Label: "발생 시각", Kind: model.FieldOptionalText, Sentinel: SentinelUnknown, Placeholder: "예) 2026-03-02 07:45"},
			{Key: "damage", Label: "피해 정도(인명/차량/시설)", Kind: model.FieldOptionalText, Sentinel: SentinelUnknown, Placeholder: "예) 경상 2명, 차량 3대 파손, 가드레일 10m 손상"},
			{Key: "notes", Label: "특이사항", Kind: model.FieldOptionalText, Sentinel: SentinelUnknown, Multiline: true},
		},
		Instructions: strings.TrimSpace(incidentReportInstructions),
		Directive:    "위 정보를 바탕으로 지정된 형식의 ‘사고 상황 보고서’를 8~12문장으로 작성하고, 확인되지 않은 내용은 '미상'으로 표기해줘.",
		ExportName:   fixedName("incident_report.txt"),
	},
	model.WorkshopPlan: {
		Domain: model.WorkshopPlan,
		Title:  "워크숍 운영 계획서",
		Fields: []model.FieldSpec{
			{Key: "purpose", Label: "워크숍 목적", Kind: model.FieldText, Multiline: true, Placeholder: "예) 동절기 제설 작업 안전 역량 강화"},
			{Key: "audience", Label: "대상", Kind: model.FieldChoice, Options: []string{
				"현장 실무자", "신규 직원", "관리자", "전 직원",
			}},
			{Key: "duration", Label: "진행 시간", Kind: model.FieldChoice, Options: []string{
				"2시간", "반나절(4시간)", "1일", "1박 2일",
			}},
			{Key: "participants", Label: "참석 인원", Kind: model.FieldNumeric, Sentinel: SentinelUnknown, Placeholder: "예) 30"},
			{Key: "venue", Label: "장소", Kind: model.FieldOptionalText, Sentinel: SentinelUnknown},
			{Key: "notes", Label: "추가 요청사항", Kind: model.FieldOptionalText, Sentinel: SentinelNone, Multiline: true},
		},
		Instructions: strings.TrimSpace(workshopPlanInstructions),
		Directive:    "위 정보를 바탕으로 지정된 형식의 ‘워크숍 운영 계획서’를 작성하고, 정해지지 않은 항목은 '미정'으로 표기해줘.",
		ExportName:   fixedName("workshop_plan.txt"),
	},
	model.OperationalSummary: {
		Domain: model.OperationalSummary,
		Title:  "운영 실적 요약 보고서",
		Fields: []model.FieldSpec{
			{Key: "period", Label: "보고 기간", Kind: model.FieldOptionalText, Sentinel: SentinelUnknown, Placeholder: "예) 2026년 1분기"},
			{Key: "unit", Label: "대상 부서", Kind: model.FieldChoice, Options: []string{
				"지사 전체", "교통관리팀", "시설관리팀", "안전순찰팀",
			}},
			{Key: "traffic_volume", Label: "일평균 교통량(대)", Kind: model.FieldNumeric, Sentinel: SentinelUnknown},
			{Key: "incidents", Label: "사고 건수", Kind: model.FieldNumeric, Sentinel: SentinelUnknown},
			{Key: "repairs", Label: "보수 실적(건)", Kind: model.FieldNumeric, Sentinel: SentinelUnknown},
			{Key: "complaints", Label: "민원 건수", Kind: model.FieldNumeric, Sentinel: SentinelUnknown},
			{Key: "highlights", Label: "주요 성과", Kind: model.FieldOptionalText, Sentinel: SentinelNone, Multiline: true},
			{Key: "issues", Label: "문제점/개선 필요사항", Kind: model.FieldOptionalText, Sentinel: SentinelNone, Multiline: true},
		},
		Instructions: strings.TrimSpace(operationalSummaryInstructions),
		Directive:    "위 정보를 바탕으로 지정된 형식의 ‘운영 실적 요약 보고서’를 작성하고, 입력되지 않은 수치는 '미상'으로 표기해줘.",
		ExportName:   periodName("operational_summary", "period"),
	},
}

// order fixes the listing order of All.
var order = []model.Domain{
	model.FacilityInspection,
	model.IncidentReport,
	model.WorkshopPlan,
	model.OperationalSummary,
}

// Lookup returns the descriptor registered for d.
func Lookup(d model.Domain) (model.Descriptor, bool) {
	desc, ok := registry[d]
	return desc, ok
}

// All returns every descriptor in a stable order.
func All() []model.Descriptor {
	out := make([]model.Descriptor, 0, len(order))
	for _, d := range order {
		out = append(out, registry[d])
	}
	return out
}

func fixedName(name string) func(model.ReportRequest) string {
	return func(model.ReportRequest) string { return name }
}

var unsafeFilenameChars = regexp.MustCompile(`[\s/\\:*?"<>|]+`)

// periodName embeds the value of key into the filename, e.g.
// operational_summary_2026년_1분기.txt. A missing period yields base.txt.
func periodName(base, key string) func(model.ReportRequest) string {
	return func(req model.ReportRequest) string {
		period, _ := req.Value(key)
		period = strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(period), "_"), "_.")
		if period == "" || period == SentinelUnknown {
			return base + ".txt"
		}
		return base + "_" + period + ".txt"
	}
}
