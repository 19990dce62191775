package model

// Domain identifies one report type. Each deployment route serves exactly one.
type Domain string

const (
	FacilityInspection Domain = "facility_inspection"
	IncidentReport     Domain = "incident_report"
	WorkshopPlan       Domain = "workshop_plan"
	OperationalSummary Domain = "operational_summary"
)

// String returns the string representation of the domain.
func (d Domain) String() string {
	return string(d)
}

// FieldKind describes how a form value is collected and normalised.
type FieldKind string

const (
	// FieldChoice is picked from a closed option set.
	FieldChoice FieldKind = "choice"
	// FieldText is free text that must be non-empty after trimming.
	FieldText FieldKind = "text"
	// FieldOptionalText is free text replaced by a sentinel when empty.
	FieldOptionalText FieldKind = "optional_text"
	// FieldNumeric is a number entered as text, replaced by a sentinel when empty.
	FieldNumeric FieldKind = "numeric"
)

// FieldSpec declares one input field of a domain schema.
type FieldSpec struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Kind        FieldKind `json:"kind"`
	Options     []string  `json:"options,omitempty"`
	Sentinel    string    `json:"sentinel,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Multiline   bool      `json:"multiline,omitempty"`
}

// Optional reports whether an empty value is substituted instead of rejected.
func (f FieldSpec) Optional() bool {
	return f.Kind == FieldOptionalText || f.Kind == FieldNumeric
}

// Descriptor carries everything that differs between report types. The
// pipeline itself is the same for all of them.
type Descriptor struct {
	Domain        Domain
	Title         string
	Fields        []FieldSpec
	RequiresImage bool
	// Instructions is the fixed system text. It never depends on input.
	Instructions string
	// Directive is the closing request line appended to every fact block.
	Directive string
	// ExportName builds the download filename from the normalised request.
	ExportName func(ReportRequest) string
}

// Field returns the spec for key.
func (d Descriptor) Field(key string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldSpec{}, false
}
