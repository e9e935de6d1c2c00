package prompts

import (
	"bytes"
	"fmt"
	"text/template"
)

type analysisData struct {
	Page string
}

type codeData struct {
	Question string
	Imports  []string
}

// Renderer fills the analysis and code templates. Templates are parsed once.
type Renderer struct {
	analysis *template.Template
	code     *template.Template
	imports  []string
}

func NewRenderer(analysisTemplate, codeTemplate string, imports []string) (*Renderer, error) {
	analysis, err := template.New("analysis").Parse(analysisTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse analysis template: %w", err)
	}
	code, err := template.New("code").Parse(codeTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse code template: %w", err)
	}
	return &Renderer{analysis: analysis, code: code, imports: imports}, nil
}

// NewDefaultRenderer uses the embedded templates.
func NewDefaultRenderer(imports []string) (*Renderer, error) {
	return NewRenderer(AnalysisPrompt, CodePrompt, imports)
}

func (r *Renderer) Analysis(page string) (string, error) {
	return execute(r.analysis, analysisData{Page: page})
}

func (r *Renderer) Code(question string) (string, error) {
	return execute(r.code, codeData{Question: question, Imports: r.imports})
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
