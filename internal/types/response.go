package types

// ExtractedEntities holds the optional slots pulled out of a prompt. A missing
// field means "not found".
type ExtractedEntities struct {
	Subject    string `json:"subject,omitempty"`
	GradeLevel string `json:"gradeLevel,omitempty"`
	Topic      string `json:"topic,omitempty"`
	Style      string `json:"style,omitempty"`
}

// ClassificationResult is what the router returns for every successful call.
type ClassificationResult struct {
	Intent     Intent            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   ExtractedEntities `json:"entities"`
	Reasoning  string            `json:"reasoning,omitempty"`
	Overridden bool              `json:"overridden"`
}
