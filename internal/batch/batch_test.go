package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qa-ensemble/internal/ensemble"
	"qa-ensemble/internal/llm"
	"qa-ensemble/internal/logger"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseQuestions(t *testing.T) {
	records, err := ParseQuestions([]byte(`[
		{"input": "What is 2+2?", "domain": "math"},
		{"input": "Capital of Peru?"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"What is 2+2?", "Capital of Peru?"}, Questions(records))
}

func TestParseQuestionsKeepsEmptyInput(t *testing.T) {
	records, err := ParseQuestions([]byte(`[{"input": "What is 2+2?"}, {"input": ""}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"What is 2+2?", ""}, Questions(records))
}

func TestParseQuestionsErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "object instead of list", data: `{"input": "x"}`},
		{name: "null", data: `null`},
		{name: "invalid json", data: `[{"input": `},
		{name: "missing input", data: `[{"question": "x"}]`},
		{name: "non-string input", data: `[{"input": 3}]`},
		{name: "null input", data: `[{"input": null}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuestions([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestWriteAnswersRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	answers := []AnswerRecord{{Output: "Zürich <b>"}, {Output: ""}}

	require.NoError(t, WriteAnswers(path, answers))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"output": "Zürich <b>"`)
	assert.NoError(t, Validate(2, data, DefaultMaxAnswerLength))
}

func TestValidate(t *testing.T) {
	long := strings.Repeat("é", DefaultMaxAnswerLength)

	tests := []struct {
		name      string
		count     int
		data      string
		wantErr   bool
		wantCount bool
	}{
		{name: "valid", count: 2, data: `[{"output": "a"}, {"output": ""}]`},
		{name: "empty batch", count: 0, data: `[]`},
		{name: "too few answers", count: 3, data: `[{"output": "a"}]`, wantErr: true, wantCount: true},
		{name: "missing output", count: 1, data: `[{"answer": "a"}]`, wantErr: true},
		{name: "non-string output", count: 1, data: `[{"output": 5}]`, wantErr: true},
		{name: "output at limit", count: 1, data: `[{"output": "` + long + `"}]`, wantErr: true},
		{name: "output just under limit", count: 1, data: `[{"output": "` + long[len("é"):] + `"}]`},
		{name: "not a list", count: 1, data: `{"output": "a"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.count, []byte(tt.data), DefaultMaxAnswerLength)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCount, errors.Is(err, ErrLengthMismatch))
		})
	}
}

func TestValidateReportsFields(t *testing.T) {
	err := Validate(2, []byte(`[{"output": "ok"}, {"output": 1}]`), 10)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.NotEmpty(t, ve.Errors)
	assert.Contains(t, ve.Errors[0].Field, "output")
	assert.Contains(t, ve.Error(), "validation failed")
}

func TestValidateFiles(t *testing.T) {
	questions := writeTemp(t, "q.json", `[{"input": "a"}, {"input": "b"}]`)
	good := writeTemp(t, "good.json", `[{"output": "1"}, {"output": "2"}]`)
	short := writeTemp(t, "short.json", `[{"output": "1"}]`)

	assert.NoError(t, ValidateFiles(questions, good, 0))
	assert.ErrorIs(t, ValidateFiles(questions, short, 0), ErrLengthMismatch)
	assert.Error(t, ValidateFiles(questions, filepath.Join(t.TempDir(), "missing.json"), 0))
}

// End to end: N questions through a stub that always answers "42" produce
// N valid answer records, including one for an empty question.
func TestBatchEndToEndWithStub(t *testing.T) {
	input := writeTemp(t, "questions.json", `[
		{"input": "What is six times seven?"},
		{"input": "How many roads must a man walk down?"},
		{"input": "Answer to everything?"},
		{"input": ""}
	]`)
	output := filepath.Join(t.TempDir(), "answers.json")

	records, err := LoadQuestions(input)
	require.NoError(t, err)

	p, err := ensemble.New(llm.NewStubClient("42"), ensemble.Config{
		Directives:        ensemble.DefaultDirectives(),
		SampleTemperature: 0.9,
		MaxTokens:         256,
	}, logger.Discard())
	require.NoError(t, err)

	results, err := p.Run(context.Background(), Questions(records))
	require.NoError(t, err)
	require.NoError(t, WriteAnswers(output, Answers(results)))
	require.NoError(t, ValidateFiles(input, output, DefaultMaxAnswerLength))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"output":"42"},{"output":"42"},{"output":"42"},{"output":"42"}]`, string(data))
}
