package internal

type Label string

const (
	LabelPerson       Label = "PERSON"
	LabelOrganization Label = "ORGANIZATION"
	LabelLocation     Label = "LOCATION"
	LabelOther        Label = "O"
)

// IsCompanyLike reports whether tokens with this label take part in
// organization grouping. PERSON and ORGANIZATION collapse into one category.
func (l Label) IsCompanyLike() bool {
	return l == LabelPerson || l == LabelOrganization
}

type TaggedToken struct {
	Text  string `json:"text"`
	Label Label  `json:"label"`
}

type Span struct {
	Text  string
	Label Label
}

type Triple struct {
	Subject string `json:"subject"`
	Verb    string `json:"verb"`
	Object  string `json:"object"`
}

type TickerEntry struct {
	Company string `json:"company" yaml:"company"`
	Ticker  string `json:"ticker" yaml:"ticker"`
}

type AnnotationStatus string

const (
	StatusTagged      AnnotationStatus = "tagged"
	StatusUnavailable AnnotationStatus = "unavailable"
)

// Annotation is the best-effort result of annotating one headline. Text is
// empty and Changed false when Status is StatusUnavailable.
type Annotation struct {
	Text    string
	Changed bool
	Status  AnnotationStatus
}

type RecordResult struct {
	Index               int
	Headline            string
	Status              AnnotationStatus
	OrgParse            *string
	OrgChangeMade       bool
	OrgSubObjParse      *string
	OrgSubObjChangeMade bool
}

type RunCounts struct {
	Records     int `json:"records"`
	Changed     int `json:"changed"`
	SubObjAdded int `json:"subObjChanged"`
	Unavailable int `json:"unavailable"`
}

type RunRow struct {
	ID         string
	Input      string
	Output     string
	Counts     RunCounts
	StartedAt  string
	FinishedAt *string
}

type AnnotationExportRow struct {
	Index               int
	Headline            string
	Status              string
	OrgParse            *string
	OrgChangeMade       bool
	OrgSubObjParse      *string
	OrgSubObjChangeMade bool
}
