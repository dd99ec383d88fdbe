package question

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitccacm/recruitment-portal/core"
)

func TestValidateAnswers(t *testing.T) {
	questions := []Question{
		{ID: "q-why", Type: TypeText, Text: "Why this department?", IsRequired: true},
		{ID: "q-team", Type: TypeSingleChoice, Options: []string{"Tech", "Design", "Management"}, IsRequired: true},
		{ID: "q-skills", Type: TypeMultipleChoice, Options: []string{"Go", "Python", "Figma"}},
		{ID: "q-portfolio", Type: TypeLink},
		{ID: "q-resume", Type: TypeFileUpload, FileMaxSize: 1024, AllowedExtensions: "pdf,docx"},
	}

	fullInputs := func() map[string]AnswerInput {
		return map[string]AnswerInput{
			"q-why":       {Values: []string{"Because."}},
			"q-team":      {Values: []string{"Tech"}},
			"q-skills":    {Values: []string{"Go", "Figma"}},
			"q-portfolio": {Values: []string{"https://me.example.com"}},
			"q-resume":    {File: &FileMeta{Filename: "cv.pdf", Size: 200 * 1024}},
		}
	}

	tests := []struct {
		name       string
		mutate     func(map[string]AnswerInput)
		wantFields []string
	}{
		{name: "all valid", mutate: func(map[string]AnswerInput) {}},
		{
			name: "optional questions skipped",
			mutate: func(in map[string]AnswerInput) {
				delete(in, "q-skills")
				delete(in, "q-portfolio")
				delete(in, "q-resume")
			},
		},
		{
			name:       "missing required text",
			mutate:     func(in map[string]AnswerInput) { delete(in, "q-why") },
			wantFields: []string{"q-why"},
		},
		{
			name:       "blank required text",
			mutate:     func(in map[string]AnswerInput) { in["q-why"] = AnswerInput{Values: []string{""}} },
			wantFields: []string{"q-why"},
		},
		{
			name:       "unknown choice",
			mutate:     func(in map[string]AnswerInput) { in["q-team"] = AnswerInput{Values: []string{"HR"}} },
			wantFields: []string{"q-team"},
		},
		{
			name:       "multiple values on single choice",
			mutate:     func(in map[string]AnswerInput) { in["q-team"] = AnswerInput{Values: []string{"Tech", "Design"}} },
			wantFields: []string{"q-team"},
		},
		{
			name:       "unknown multi choice",
			mutate:     func(in map[string]AnswerInput) { in["q-skills"] = AnswerInput{Values: []string{"Go", "COBOL"}} },
			wantFields: []string{"q-skills"},
		},
		{
			name:       "invalid link",
			mutate:     func(in map[string]AnswerInput) { in["q-portfolio"] = AnswerInput{Values: []string{"not a url"}} },
			wantFields: []string{"q-portfolio"},
		},
		{
			name:       "ftp link",
			mutate:     func(in map[string]AnswerInput) { in["q-portfolio"] = AnswerInput{Values: []string{"ftp://me.example.com"}} },
			wantFields: []string{"q-portfolio"},
		},
		{
			name: "file too big",
			mutate: func(in map[string]AnswerInput) {
				in["q-resume"] = AnswerInput{File: &FileMeta{Filename: "cv.pdf", Size: 2048 * 1024}}
			},
			wantFields: []string{"q-resume"},
		},
		{
			name: "disallowed extension",
			mutate: func(in map[string]AnswerInput) {
				in["q-resume"] = AnswerInput{File: &FileMeta{Filename: "cv.exe", Size: 1024}}
			},
			wantFields: []string{"q-resume"},
		},
		{
			name: "several errors at once",
			mutate: func(in map[string]AnswerInput) {
				delete(in, "q-why")
				in["q-team"] = AnswerInput{Values: []string{"HR"}}
			},
			wantFields: []string{"q-why", "q-team"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs := fullInputs()
			tt.mutate(inputs)

			err := ValidateAnswers(questions, inputs)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}

			var vErr *core.ValidationError
			if assert.ErrorAs(t, err, &vErr) {
				var fields []string
				for _, fe := range vErr.Fields {
					fields = append(fields, fe.Field)
				}
				assert.ElementsMatch(t, tt.wantFields, fields)
			}
		})
	}
}
