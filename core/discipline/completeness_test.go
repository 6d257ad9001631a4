package discipline

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func satisfiedFlags(r Report) []bool {
	flags := make([]bool, 0, len(r.Requirements))
	for _, req := range r.Requirements {
		flags = append(flags, req.Satisfied)
	}
	return flags
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		snap         ContentSnapshot
		wantProgress int
		wantComplete bool
		wantFlags    []bool
	}{
		{
			name:      "empty",
			snap:      ContentSnapshot{},
			wantFlags: []bool{false, false, false, false},
		},
		{
			name:         "complete",
			snap:         ContentSnapshot{VideoCount: 1, HasEbook: true, SimuladoQuestionCount: 5, AvaliacaoFinalQuestionCount: 10},
			wantProgress: 100,
			wantComplete: true,
			wantFlags:    []bool{true, true, true, true},
		},
		{
			name:         "final assessment short by one",
			snap:         ContentSnapshot{VideoCount: 1, HasEbook: true, SimuladoQuestionCount: 5, AvaliacaoFinalQuestionCount: 9},
			wantProgress: 75,
			wantFlags:    []bool{true, true, true, false},
		},
		{
			name:         "final assessment over by one",
			snap:         ContentSnapshot{VideoCount: 1, HasEbook: true, SimuladoQuestionCount: 5, AvaliacaoFinalQuestionCount: 11},
			wantProgress: 75,
			wantFlags:    []bool{true, true, true, false},
		},
		{
			name:         "simulado above threshold",
			snap:         ContentSnapshot{VideoCount: 12, HasEbook: true, SimuladoQuestionCount: 40, AvaliacaoFinalQuestionCount: 10},
			wantProgress: 100,
			wantComplete: true,
			wantFlags:    []bool{true, true, true, true},
		},
		{
			name:         "simulado below threshold",
			snap:         ContentSnapshot{VideoCount: 1, SimuladoQuestionCount: 4},
			wantProgress: 25,
			wantFlags:    []bool{true, false, false, false},
		},
		{
			name:         "half",
			snap:         ContentSnapshot{HasEbook: true, AvaliacaoFinalQuestionCount: 10},
			wantProgress: 50,
			wantFlags:    []bool{false, true, false, true},
		},
		{
			name:         "interactive ebook does not gate",
			snap:         ContentSnapshot{HasInteractiveEbook: true},
			wantProgress: 0,
			wantFlags:    []bool{false, false, false, false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.snap)
			require.NoError(t, err)
			assert.Equal(t, tt.wantProgress, got.Progress, "progress")
			assert.Equal(t, tt.wantComplete, got.IsComplete, "isComplete")
			assert.Equal(t, tt.wantFlags, satisfiedFlags(got), "satisfied")
			assert.Equal(t, tt.snap.HasInteractiveEbook, got.HasInteractiveEbook, "hasInteractiveEbook")
		})
	}
}

func TestEvaluate_requirementOrder(t *testing.T) {
	got, err := Evaluate(ContentSnapshot{})
	require.NoError(t, err)
	assert.Equal(t, []Requirement{
		{Key: "video", Label: "Vídeo"},
		{Key: "ebook", Label: "E-book"},
		{Key: "simulado", Label: "Simulado"},
		{Key: "avaliacao_final", Label: "Avaliação Final"},
	}, got.Requirements)
	assert.Equal(t, []string{"video", "ebook", "simulado", "avaliacao_final"}, got.Missing())
}

func TestEvaluate_invalidSnapshot(t *testing.T) {
	tests := []struct {
		name      string
		snap      ContentSnapshot
		wantField string
	}{
		{name: "negative videos", snap: ContentSnapshot{VideoCount: -1}, wantField: "videoCount"},
		{name: "negative simulado", snap: ContentSnapshot{VideoCount: 1, SimuladoQuestionCount: -5}, wantField: "simuladoQuestionCount"},
		{name: "negative final assessment", snap: ContentSnapshot{AvaliacaoFinalQuestionCount: -10}, wantField: "avaliacaoFinalQuestionCount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.snap)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSnapshot), "errors.Is(err, ErrInvalidSnapshot)")
			var snapErr *InvalidSnapshotError
			require.True(t, errors.As(err, &snapErr))
			assert.Equal(t, tt.wantField, snapErr.Field)
			assert.Equal(t, Report{}, got, "no partial report")
		})
	}
}

func TestEvaluate_monotonic(t *testing.T) {
	eval := func(s ContentSnapshot) int {
		r, err := Evaluate(s)
		require.NoError(t, err)
		return r.Progress
	}

	bases := []ContentSnapshot{
		{},
		{HasEbook: true},
		{VideoCount: 3, SimuladoQuestionCount: 2},
		{VideoCount: 1, HasEbook: true, SimuladoQuestionCount: 5, AvaliacaoFinalQuestionCount: 10},
		{AvaliacaoFinalQuestionCount: 11},
	}
	for _, base := range bases {
		prev := eval(base)
		for n := base.VideoCount + 1; n <= base.VideoCount+3; n++ {
			s := base
			s.VideoCount = n
			p := eval(s)
			assert.GreaterOrEqual(t, p, prev, "videoCount %d on %+v", n, base)
			prev = p
		}

		prev = eval(base)
		for n := base.SimuladoQuestionCount + 1; n <= MinSimuladoQuestions+2; n++ {
			s := base
			s.SimuladoQuestionCount = n
			p := eval(s)
			assert.GreaterOrEqual(t, p, prev, "simuladoQuestionCount %d on %+v", n, base)
			prev = p
		}

		withEbook := base
		withEbook.HasEbook = true
		assert.GreaterOrEqual(t, eval(withEbook), eval(base), "hasEbook on %+v", base)

		// final assessment only counts at exactly 10
		s := base
		s.AvaliacaoFinalQuestionCount = 0
		unsatisfied := eval(s)
		for _, n := range []int{1, 5, 9, 11, 12, 50} {
			s.AvaliacaoFinalQuestionCount = n
			assert.Equal(t, unsatisfied, eval(s), "avaliacaoFinalQuestionCount %d on %+v", n, base)
		}
		s.AvaliacaoFinalQuestionCount = AvaliacaoFinalQuestions
		assert.Equal(t, unsatisfied+25, eval(s), "avaliacaoFinalQuestionCount 10 on %+v", base)
	}
}

func TestSnapshotInput_ToSnapshot(t *testing.T) {
	decode := func(t *testing.T, body string) SnapshotInput {
		var in SnapshotInput
		require.NoError(t, json.Unmarshal([]byte(body), &in))
		return in
	}

	in := decode(t, `{"videoCount":2,"hasEbook":true,"hasInteractiveEbook":false,"simuladoQuestionCount":5,"avaliacaoFinalQuestionCount":10}`)
	snap, err := in.ToSnapshot()
	require.NoError(t, err)
	assert.Equal(t, ContentSnapshot{VideoCount: 2, HasEbook: true, SimuladoQuestionCount: 5, AvaliacaoFinalQuestionCount: 10}, snap)

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{name: "empty", body: `{}`, wantField: "videoCount"},
		{name: "null video count", body: `{"videoCount":null,"hasEbook":true,"hasInteractiveEbook":false,"simuladoQuestionCount":5,"avaliacaoFinalQuestionCount":10}`, wantField: "videoCount"},
		{name: "missing ebook", body: `{"videoCount":1,"hasInteractiveEbook":false,"simuladoQuestionCount":5,"avaliacaoFinalQuestionCount":10}`, wantField: "hasEbook"},
		{name: "missing interactive ebook", body: `{"videoCount":1,"hasEbook":true,"simuladoQuestionCount":5,"avaliacaoFinalQuestionCount":10}`, wantField: "hasInteractiveEbook"},
		{name: "missing simulado", body: `{"videoCount":1,"hasEbook":true,"hasInteractiveEbook":false,"avaliacaoFinalQuestionCount":10}`, wantField: "simuladoQuestionCount"},
		{name: "missing final assessment", body: `{"videoCount":1,"hasEbook":true,"hasInteractiveEbook":false,"simuladoQuestionCount":5}`, wantField: "avaliacaoFinalQuestionCount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(t, tt.body).ToSnapshot()
			require.True(t, errors.Is(err, ErrInvalidSnapshot), "err = %v", err)
			assert.Equal(t, tt.wantField, err.(*InvalidSnapshotError).Field)
		})
	}
}

func TestReport_roundTrip(t *testing.T) {
	snaps := []ContentSnapshot{
		{},
		{VideoCount: 1, HasEbook: true, SimuladoQuestionCount: 5, AvaliacaoFinalQuestionCount: 10, HasInteractiveEbook: true},
		{VideoCount: 1, HasEbook: true, SimuladoQuestionCount: 5, AvaliacaoFinalQuestionCount: 9},
		{HasEbook: true, SimuladoQuestionCount: 7},
	}
	for _, snap := range snaps {
		report, err := Evaluate(snap)
		require.NoError(t, err)

		body, err := json.Marshal(report.Response())
		require.NoError(t, err)
		var resp ReportResponse
		require.NoError(t, json.Unmarshal(body, &resp))

		got, err := ReportFromResponse(resp)
		require.NoError(t, err)
		assert.Equal(t, report, got)
	}
}

func TestReport_Response(t *testing.T) {
	report, err := Evaluate(ContentSnapshot{VideoCount: 1, HasEbook: true, SimuladoQuestionCount: 5, AvaliacaoFinalQuestionCount: 9})
	require.NoError(t, err)

	body, err := json.Marshal(report.Response())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"items": [
			{"id": "video", "name": "Vídeo", "isCompleted": true},
			{"id": "ebook", "name": "E-book", "isCompleted": true},
			{"id": "simulado", "name": "Simulado", "isCompleted": true},
			{"id": "avaliacao_final", "name": "Avaliação Final", "isCompleted": false}
		],
		"progress": 75
	}`, string(body))
}

func TestReportFromResponse_invalid(t *testing.T) {
	report, err := Evaluate(ContentSnapshot{VideoCount: 1})
	require.NoError(t, err)
	valid := report.Response()

	wrongProgress := valid
	wrongProgress.Progress = 50

	reordered := valid
	reordered.Items = append([]Item{}, valid.Items...)
	reordered.Items[0], reordered.Items[1] = reordered.Items[1], reordered.Items[0]

	short := valid
	short.Items = valid.Items[:3]

	for name, resp := range map[string]ReportResponse{
		"wrong progress": wrongProgress,
		"reordered":      reordered,
		"missing items":  short,
		"empty":          {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReportFromResponse(resp)
			assert.True(t, errors.Is(err, ErrInvalidSnapshot), "err = %v", err)
		})
	}
}
