package prompts

import (
	_ "embed"
)

//go:embed analysis.txt
var AnalysisPrompt string

//go:embed code.txt
var CodePrompt string
