package entity

type PageAnalysis struct {
	SubmitURL string
	Question  string
}

type GeneratedArtifact struct {
	Code   string
	Answer any
}

type SubmissionPayload struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
	URL    string `json:"url"`
	Answer any    `json:"answer"`
}

type SubmissionResult struct {
	Correct bool
	NextURL string
	Raw     map[string]any
}
