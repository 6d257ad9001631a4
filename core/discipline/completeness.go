package discipline

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Completeness policy.
const (
	MinVideos               = 1
	MinSimuladoQuestions    = 5
	AvaliacaoFinalQuestions = 10 // exact: final assessments are fixed-length
)

// Requirement keys, in report order.
const (
	RequirementVideo          = "video"
	RequirementEbook          = "ebook"
	RequirementSimulado       = "simulado"
	RequirementAvaliacaoFinal = "avaliacao_final"
)

// ErrInvalidSnapshot is matched (errors.Is) by every *InvalidSnapshotError.
var ErrInvalidSnapshot = errors.New("invalid content snapshot")

// InvalidSnapshotError reports the snapshot field that broke the evaluation contract.
type InvalidSnapshotError struct {
	Field  string
	Reason string
}

func (e *InvalidSnapshotError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidSnapshot, e.Field, e.Reason)
}

func (e *InvalidSnapshotError) Is(target error) bool { return target == ErrInvalidSnapshot }

func invalidSnapshot(field, reason string) error {
	return &InvalidSnapshotError{Field: field, Reason: reason}
}

// ContentSnapshot holds the exact content counts of a discipline at evaluation time.
type ContentSnapshot struct {
	VideoCount                  int
	HasEbook                    bool
	HasInteractiveEbook         bool
	SimuladoQuestionCount       int
	AvaliacaoFinalQuestionCount int
}

// SnapshotInput is the wire form of a ContentSnapshot. Every field is mandatory.
type SnapshotInput struct {
	VideoCount                  *int  `json:"videoCount"`
	HasEbook                    *bool `json:"hasEbook"`
	HasInteractiveEbook         *bool `json:"hasInteractiveEbook"`
	SimuladoQuestionCount       *int  `json:"simuladoQuestionCount"`
	AvaliacaoFinalQuestionCount *int  `json:"avaliacaoFinalQuestionCount"`
}

// ToSnapshot fails with ErrInvalidSnapshot on missing fields; it does not check signs.
func (in SnapshotInput) ToSnapshot() (ContentSnapshot, error) {
	switch {
	case in.VideoCount == nil:
		return ContentSnapshot{}, invalidSnapshot("videoCount", "is missing")
	case in.HasEbook == nil:
		return ContentSnapshot{}, invalidSnapshot("hasEbook", "is missing")
	case in.HasInteractiveEbook == nil:
		return ContentSnapshot{}, invalidSnapshot("hasInteractiveEbook", "is missing")
	case in.SimuladoQuestionCount == nil:
		return ContentSnapshot{}, invalidSnapshot("simuladoQuestionCount", "is missing")
	case in.AvaliacaoFinalQuestionCount == nil:
		return ContentSnapshot{}, invalidSnapshot("avaliacaoFinalQuestionCount", "is missing")
	}
	return ContentSnapshot{
		VideoCount:                  *in.VideoCount,
		HasEbook:                    *in.HasEbook,
		HasInteractiveEbook:         *in.HasInteractiveEbook,
		SimuladoQuestionCount:       *in.SimuladoQuestionCount,
		AvaliacaoFinalQuestionCount: *in.AvaliacaoFinalQuestionCount,
	}, nil
}

type (
	Requirement struct {
		Key       string `json:"key"`
		Label     string `json:"label"`
		Satisfied bool   `json:"satisfied"`
	}

	// Report is the completeness of a discipline. Requirements are always in policy order.
	Report struct {
		Requirements        []Requirement `json:"requirements"`
		Progress            int           `json:"progress"`
		IsComplete          bool          `json:"is_complete"`
		HasInteractiveEbook bool          `json:"has_interactive_ebook"` // informational, never gating
	}

	// Item is the UI-facing form of a Requirement.
	Item struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		IsCompleted bool   `json:"isCompleted"`
	}

	ReportResponse struct {
		Items               []Item `json:"items"`
		Progress            int    `json:"progress"`
		HasInteractiveEbook bool   `json:"hasInteractiveEbook,omitempty"`
	}
)

type policyRule struct {
	key       string
	label     string
	satisfied func(ContentSnapshot) bool
}

var policy = []policyRule{
	{
		key:       RequirementVideo,
		label:     "Vídeo",
		satisfied: func(s ContentSnapshot) bool { return s.VideoCount >= MinVideos },
	},
	{
		key:       RequirementEbook,
		label:     "E-book",
		satisfied: func(s ContentSnapshot) bool { return s.HasEbook },
	},
	{
		key:       RequirementSimulado,
		label:     "Simulado",
		satisfied: func(s ContentSnapshot) bool { return s.SimuladoQuestionCount >= MinSimuladoQuestions },
	},
	{
		key:       RequirementAvaliacaoFinal,
		label:     "Avaliação Final",
		satisfied: func(s ContentSnapshot) bool { return s.AvaliacaoFinalQuestionCount == AvaliacaoFinalQuestions },
	},
}

// Validate rejects negative counts.
func (s ContentSnapshot) Validate() error {
	switch {
	case s.VideoCount < 0:
		return invalidSnapshot("videoCount", "is negative")
	case s.SimuladoQuestionCount < 0:
		return invalidSnapshot("simuladoQuestionCount", "is negative")
	case s.AvaliacaoFinalQuestionCount < 0:
		return invalidSnapshot("avaliacaoFinalQuestionCount", "is negative")
	}
	return nil
}

// Evaluate checks a snapshot against the completeness policy.
// It is pure: no partial Report is returned on error.
func Evaluate(snap ContentSnapshot) (Report, error) {
	if err := snap.Validate(); err != nil {
		return Report{}, err
	}

	report := Report{
		Requirements:        make([]Requirement, 0, len(policy)),
		HasInteractiveEbook: snap.HasInteractiveEbook,
	}
	var satisfied int
	for _, rule := range policy {
		ok := rule.satisfied(snap)
		if ok {
			satisfied++
		}
		report.Requirements = append(report.Requirements, Requirement{Key: rule.key, Label: rule.label, Satisfied: ok})
	}
	report.Progress = progress(satisfied, len(policy))
	report.IsComplete = satisfied == len(policy)
	return report, nil
}

func progress(satisfied, total int) int {
	return int(math.Round(float64(satisfied) / float64(total) * 100))
}

// Missing returns the keys of the unsatisfied requirements.
func (r Report) Missing() []string {
	var keys []string
	for _, req := range r.Requirements {
		if !req.Satisfied {
			keys = append(keys, req.Key)
		}
	}
	return keys
}

func (r Report) Items() []Item {
	items := make([]Item, 0, len(r.Requirements))
	for _, req := range r.Requirements {
		items = append(items, Item{ID: req.Key, Name: req.Label, IsCompleted: req.Satisfied})
	}
	return items
}

func (r Report) Response() ReportResponse {
	return ReportResponse{Items: r.Items(), Progress: r.Progress, HasInteractiveEbook: r.HasInteractiveEbook}
}

// ReportFromResponse rebuilds a Report from its wire form.
// The items must follow the policy order and agree with the progress.
func ReportFromResponse(resp ReportResponse) (Report, error) {
	if len(resp.Items) != len(policy) {
		return Report{}, invalidSnapshot("items", fmt.Sprintf("must hold %d requirements", len(policy)))
	}

	report := Report{
		Requirements:        make([]Requirement, 0, len(policy)),
		HasInteractiveEbook: resp.HasInteractiveEbook,
	}
	var satisfied int
	for i, item := range resp.Items {
		if item.ID != policy[i].key {
			return Report{}, invalidSnapshot("items", fmt.Sprintf("expected %q at position %d, got %q", policy[i].key, i, item.ID))
		}
		if item.IsCompleted {
			satisfied++
		}
		report.Requirements = append(report.Requirements, Requirement{Key: item.ID, Label: item.Name, Satisfied: item.IsCompleted})
	}

	report.Progress = progress(satisfied, len(policy))
	if report.Progress != resp.Progress {
		return Report{}, invalidSnapshot("progress", fmt.Sprintf("is %d, items give %d", resp.Progress, report.Progress))
	}
	report.IsComplete = satisfied == len(policy)
	return report, nil
}
