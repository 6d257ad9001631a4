package discipline

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ead/core"
	"github.com/trezcool/ead/core/media"
)

// EbookKind
const (
	EbookStandard    = "standard"
	EbookInteractive = "interactive"
)

// Assessment
const (
	AssessmentSimulado       = "simulado"
	AssessmentAvaliacaoFinal = "avaliacao_final"
)

var (
	EbookKinds  = []string{EbookStandard, EbookInteractive}
	Assessments = []string{AssessmentSimulado, AssessmentAvaliacaoFinal}
)

type Discipline struct {
	ID               string    `json:"id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Workload         int       `json:"workload"` // hours
	CoordinatorName  string    `json:"coordinator_name"`
	CoordinatorEmail string    `json:"coordinator_email"`
	IsPublished      bool      `json:"is_published"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

type Video struct {
	ID             string               `json:"id"`
	DisciplineID   string               `json:"discipline_id"`
	Title          string               `json:"title"`
	URL            string               `json:"url"`
	DeclaredSource media.DeclaredSource `json:"declared_source"`
	Position       int                  `json:"position"`
	CreatedAt      time.Time            `json:"created_at"` // UTC
}

func (v Video) Reference() media.Reference {
	return media.Reference{RawURL: v.URL, DeclaredSource: v.DeclaredSource}
}

// PlayableVideo is a Video with its resolved playback.
type PlayableVideo struct {
	Video
	Playback media.Descriptor `json:"playback"`
}

// Ebook is unique per (DisciplineID, Kind).
type Ebook struct {
	DisciplineID string           `json:"discipline_id"`
	Kind         string           `json:"kind"`
	Title        string           `json:"title"`
	URL          string           `json:"url"`
	Playback     media.Descriptor `json:"playback"`
	UpdatedAt    time.Time        `json:"updated_at"` // UTC
}

type Question struct {
	ID            string    `json:"id"`
	DisciplineID  string    `json:"discipline_id"`
	Assessment    string    `json:"assessment"`
	Statement     string    `json:"statement"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"correct_option"` // index in Options
	Position      int       `json:"position"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

// NewDiscipline contains information needed to create a new Discipline.
type NewDiscipline struct {
	Code             string `json:"code" validate:"required,max=32,discipline_code"`
	Name             string `json:"name" validate:"required,notblank,max=200"`
	Description      string `json:"description"`
	Workload         int    `json:"workload" validate:"min=0"`
	CoordinatorName  string `json:"coordinator_name" validate:"max=200"`
	CoordinatorEmail string `json:"coordinator_email" validate:"omitempty,email"`
}

func (nd *NewDiscipline) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nd.Code = strings.ToUpper(core.CleanString(nd.Code))
	nd.Name = core.CleanString(nd.Name)
	nd.Description = strings.TrimSpace(nd.Description)
	nd.CoordinatorName = core.CleanString(nd.CoordinatorName)
	nd.CoordinatorEmail = core.CleanString(nd.CoordinatorEmail, true /* lower */)

	if err := validate.Struct(nd); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ctx, nd.Code)
}

// UpdateDiscipline defines what information may be provided to modify an existing Discipline.
// Blank fields keep their current value.
type UpdateDiscipline struct {
	Code             string `json:"code" validate:"omitempty,max=32,discipline_code"`
	Name             string `json:"name" validate:"max=200"`
	Description      string `json:"description"`
	Workload         *int   `json:"workload" validate:"omitempty,min=0"`
	CoordinatorName  string `json:"coordinator_name" validate:"max=200"`
	CoordinatorEmail string `json:"coordinator_email" validate:"omitempty,email"`
}

func (ud *UpdateDiscipline) Validate(ctx context.Context, orig Discipline, validate *validator.Validate, svc Service) error {
	ud.Code = orDefault(strings.ToUpper(core.CleanString(ud.Code)), orig.Code)
	ud.Name = orDefault(core.CleanString(ud.Name), orig.Name)
	ud.Description = orDefault(strings.TrimSpace(ud.Description), orig.Description)
	ud.CoordinatorName = orDefault(core.CleanString(ud.CoordinatorName), orig.CoordinatorName)
	ud.CoordinatorEmail = orDefault(core.CleanString(ud.CoordinatorEmail, true /* lower */), orig.CoordinatorEmail)
	if ud.Workload == nil {
		ud.Workload = &orig.Workload
	}

	if err := validate.Struct(ud); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ctx, ud.Code, orig)
}

type NewVideo struct {
	Title          string `json:"title" validate:"max=200"`
	URL            string `json:"url" validate:"max=2048"`
	DeclaredSource string `json:"declared_source" validate:"omitempty,declared_source"`
}

func (nv *NewVideo) Validate(validate *validator.Validate) error {
	nv.Title = core.CleanString(nv.Title)
	nv.URL = strings.TrimSpace(nv.URL)
	nv.DeclaredSource = core.CleanString(nv.DeclaredSource, true /* lower */)
	return validate.Struct(nv)
}

type NewEbook struct {
	Title string `json:"title" validate:"max=200"`
	URL   string `json:"url" validate:"max=2048"`
}

func (ne *NewEbook) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.URL = strings.TrimSpace(ne.URL)
	return validate.Struct(ne)
}

type NewQuestion struct {
	Statement     string   `json:"statement" validate:"required,notblank"`
	Options       []string `json:"options" validate:"required,min=2,max=6,dive,required,notblank"`
	CorrectOption *int     `json:"correct_option" validate:"required,min=0"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Statement = strings.TrimSpace(nq.Statement)
	for i, opt := range nq.Options {
		nq.Options[i] = strings.TrimSpace(opt)
	}
	return validate.Struct(nq)
}

type QueryFilter struct {
	Search      string `query:"search"`
	IsPublished *bool  `query:"is_published"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func orDefault(val, def string) string {
	if val != "" {
		return val
	}
	return def
}
