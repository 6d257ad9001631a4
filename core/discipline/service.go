package discipline

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ead/core"
	"github.com/trezcool/ead/core/media"
)

var (
	// errors
	ErrNotFound        = errors.New("discipline not found")
	ErrContentNotFound = errors.New("content not found")
	ErrCodeExists      = errors.New("a discipline with this code already exists")
	ErrAssessmentFull  = errors.New("assessment already holds the maximum number of questions")
	ErrNoContent       = errors.New("no content")
	ErrIncomplete      = errors.New("discipline content is incomplete")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, excluded ...Discipline) error
		CreateDiscipline(ctx context.Context, d Discipline) (Discipline, error)
		// QueryDisciplines applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Discipline.Code or Discipline.Name.
		QueryDisciplines(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Discipline, error)
		GetDiscipline(ctx context.Context, id string) (Discipline, error)
		UpdateDiscipline(ctx context.Context, d Discipline) (Discipline, error)
		SetPublished(ctx context.Context, id string, published bool, at time.Time) (Discipline, error)
		DeleteDisciplinesByID(ctx context.Context, ids ...string) error

		// AddVideo appends v after the discipline's last video.
		AddVideo(ctx context.Context, v Video) (Video, error)
		QueryVideos(ctx context.Context, disciplineID string) ([]Video, error) // by position
		DeleteVideo(ctx context.Context, disciplineID, videoID string) error

		// SaveEbook creates or replaces the discipline's e-book of kind e.Kind.
		SaveEbook(ctx context.Context, e Ebook) (Ebook, error)
		QueryEbooks(ctx context.Context, disciplineID string) ([]Ebook, error)
		DeleteEbook(ctx context.Context, disciplineID, kind string) error

		// AddQuestion appends q to its assessment. When limit > 0 and the assessment already
		// holds limit questions, nothing is written and ErrAssessmentFull is returned.
		AddQuestion(ctx context.Context, q Question, limit int) (Question, error)
		QueryQuestions(ctx context.Context, disciplineID, assessment string) ([]Question, error) // by position
		// DeleteQuestion only deletes questionID when it belongs to assessment.
		DeleteQuestion(ctx context.Context, disciplineID, assessment, questionID string) error

		// GetContentSnapshot counts the discipline's persisted content at query time.
		GetContentSnapshot(ctx context.Context, disciplineID string) (ContentSnapshot, error)
	}

	// ThumbnailFetcher fills thumbnails that cannot be derived from the URL alone (Vimeo).
	ThumbnailFetcher interface {
		Thumbnail(ctx context.Context, d media.Descriptor) (string, error)
	}

	Service interface {
		CheckCodeUniqueness(ctx context.Context, code string, excluded ...Discipline) error
		Create(ctx context.Context, nd NewDiscipline) (Discipline, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Discipline, error)
		GetByID(ctx context.Context, id string) (Discipline, error)
		Update(ctx context.Context, id string, ud UpdateDiscipline) (Discipline, error)
		Delete(ctx context.Context, ids ...string) error

		AddVideo(ctx context.Context, disciplineID string, nv NewVideo) (PlayableVideo, error)
		ListVideos(ctx context.Context, disciplineID string) ([]PlayableVideo, error)
		DeleteVideo(ctx context.Context, disciplineID, videoID string) error

		SetEbook(ctx context.Context, disciplineID, kind string, ne NewEbook) (Ebook, error)
		ListEbooks(ctx context.Context, disciplineID string) ([]Ebook, error)
		RemoveEbook(ctx context.Context, disciplineID, kind string) error

		AddQuestion(ctx context.Context, disciplineID, assessment string, nq NewQuestion) (Question, error)
		ListQuestions(ctx context.Context, disciplineID, assessment string) ([]Question, error)
		DeleteQuestion(ctx context.Context, disciplineID, assessment, questionID string) error

		Completeness(ctx context.Context, disciplineID string) (Report, error)
		Publish(ctx context.Context, disciplineID string) (Discipline, error)
		Unpublish(ctx context.Context, disciplineID string) (Discipline, error)
	}

	service struct {
		repo     Repository
		mailSvc  core.EmailService
		logger   core.Logger
		resolver media.Resolver
		thumbs   ThumbnailFetcher
	}

	Option func(svc *service)
)

var _ Service = (*service)(nil)

// WithResolver sets a configured media.Resolver; the default one is used otherwise.
func WithResolver(r media.Resolver) Option {
	return func(svc *service) { svc.resolver = r }
}

func WithThumbnailFetcher(f ThumbnailFetcher) Option {
	return func(svc *service) { svc.thumbs = f }
}

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, opts ...Option) Service {
	svc := &service{
		repo:     repo,
		mailSvc:  mailSvc,
		logger:   logger,
		resolver: media.NewResolver(media.Options{}),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *service) CheckCodeUniqueness(ctx context.Context, code string, excluded ...Discipline) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, excluded...); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nd NewDiscipline) (Discipline, error) {
	now := time.Now().UTC()
	d := Discipline{
		Code:             nd.Code,
		Name:             nd.Name,
		Description:      nd.Description,
		Workload:         nd.Workload,
		CoordinatorName:  nd.CoordinatorName,
		CoordinatorEmail: nd.CoordinatorEmail,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return svc.repo.CreateDiscipline(ctx, d)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Discipline, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.QueryDisciplines(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Discipline, error) {
	return svc.repo.GetDiscipline(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ud UpdateDiscipline) (Discipline, error) {
	d := Discipline{
		ID:               id,
		Code:             ud.Code,
		Name:             ud.Name,
		Description:      ud.Description,
		CoordinatorName:  ud.CoordinatorName,
		CoordinatorEmail: ud.CoordinatorEmail,
		UpdatedAt:        time.Now().UTC(),
	}
	if ud.Workload != nil {
		d.Workload = *ud.Workload
	}
	return svc.repo.UpdateDiscipline(ctx, d)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteDisciplinesByID(ctx, ids...)
}

// Videos

func (svc *service) AddVideo(ctx context.Context, disciplineID string, nv NewVideo) (PlayableVideo, error) {
	if nv.URL == "" {
		return PlayableVideo{}, core.NewValidationError(ErrNoContent, core.FieldError{Field: "url", Error: ErrNoContent.Error()})
	}
	if _, err := svc.repo.GetDiscipline(ctx, disciplineID); err != nil {
		return PlayableVideo{}, err
	}

	declared := media.ParseDeclaredSource(nv.DeclaredSource)
	desc := svc.resolver.Resolve(nv.URL, declared)
	if !desc.AgreesWith(declared) {
		svc.logger.Warn(
			fmt.Sprintf("video declared as %q resolved to %q", declared, desc.Provider),
			map[string]interface{}{"discipline_id": disciplineID, "url": nv.URL},
		)
	}

	v, err := svc.repo.AddVideo(ctx, Video{
		DisciplineID:   disciplineID,
		Title:          nv.Title,
		URL:            nv.URL,
		DeclaredSource: declared,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return PlayableVideo{}, errors.Wrap(err, "adding video")
	}
	return svc.playable(ctx, v, desc), nil
}

func (svc *service) ListVideos(ctx context.Context, disciplineID string) ([]PlayableVideo, error) {
	videos, err := svc.repo.QueryVideos(ctx, disciplineID)
	if err != nil {
		return nil, err
	}
	playables := make([]PlayableVideo, 0, len(videos))
	for _, v := range videos {
		playables = append(playables, svc.playable(ctx, v, svc.resolver.ResolveReference(v.Reference())))
	}
	return playables, nil
}

// playable fills a missing thumbnail through the ThumbnailFetcher. Failures are logged & ignored.
func (svc *service) playable(ctx context.Context, v Video, desc media.Descriptor) PlayableVideo {
	if desc.ThumbnailURL == "" && desc.Provider == media.ProviderVimeo && svc.thumbs != nil {
		thumb, err := svc.thumbs.Thumbnail(ctx, desc)
		if err != nil {
			svc.logger.Debug("fetching video thumbnail", err, map[string]interface{}{"video_id": v.ID})
		} else {
			desc.ThumbnailURL = thumb
		}
	}
	return PlayableVideo{Video: v, Playback: desc}
}

func (svc *service) DeleteVideo(ctx context.Context, disciplineID, videoID string) error {
	return svc.repo.DeleteVideo(ctx, disciplineID, videoID)
}

// E-books

func (svc *service) SetEbook(ctx context.Context, disciplineID, kind string, ne NewEbook) (Ebook, error) {
	if !IsEbookKind(kind) {
		return Ebook{}, ErrContentNotFound
	}
	if ne.URL == "" {
		return Ebook{}, core.NewValidationError(ErrNoContent, core.FieldError{Field: "url", Error: ErrNoContent.Error()})
	}
	if _, err := svc.repo.GetDiscipline(ctx, disciplineID); err != nil {
		return Ebook{}, err
	}

	e, err := svc.repo.SaveEbook(ctx, Ebook{
		DisciplineID: disciplineID,
		Kind:         kind,
		Title:        ne.Title,
		URL:          ne.URL,
		UpdatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return Ebook{}, errors.Wrap(err, "saving ebook")
	}
	e.Playback = svc.resolver.Resolve(e.URL, "")
	return e, nil
}

func (svc *service) ListEbooks(ctx context.Context, disciplineID string) ([]Ebook, error) {
	ebooks, err := svc.repo.QueryEbooks(ctx, disciplineID)
	if err != nil {
		return nil, err
	}
	for i := range ebooks {
		ebooks[i].Playback = svc.resolver.Resolve(ebooks[i].URL, "")
	}
	return ebooks, nil
}

func (svc *service) RemoveEbook(ctx context.Context, disciplineID, kind string) error {
	if !IsEbookKind(kind) {
		return ErrContentNotFound
	}
	return svc.repo.DeleteEbook(ctx, disciplineID, kind)
}

// Questions

func (svc *service) AddQuestion(ctx context.Context, disciplineID, assessment string, nq NewQuestion) (Question, error) {
	if !IsAssessment(assessment) {
		return Question{}, ErrContentNotFound
	}
	if _, err := svc.repo.GetDiscipline(ctx, disciplineID); err != nil {
		return Question{}, err
	}

	// final assessments are fixed-length: authors cannot overshoot
	var limit int
	if assessment == AssessmentAvaliacaoFinal {
		limit = AvaliacaoFinalQuestions
	}

	q := Question{
		DisciplineID: disciplineID,
		Assessment:   assessment,
		Statement:    nq.Statement,
		Options:      nq.Options,
		CreatedAt:    time.Now().UTC(),
	}
	if nq.CorrectOption != nil {
		q.CorrectOption = *nq.CorrectOption
	}

	q, err := svc.repo.AddQuestion(ctx, q, limit)
	if err != nil {
		if err == ErrAssessmentFull {
			msg := fmt.Sprintf("the final assessment must have exactly %d questions", AvaliacaoFinalQuestions)
			return Question{}, core.NewValidationError(err, core.FieldError{Field: "assessment", Error: msg})
		}
		return Question{}, errors.Wrap(err, "adding question")
	}
	return q, nil
}

func (svc *service) ListQuestions(ctx context.Context, disciplineID, assessment string) ([]Question, error) {
	if !IsAssessment(assessment) {
		return nil, ErrContentNotFound
	}
	return svc.repo.QueryQuestions(ctx, disciplineID, assessment)
}

func (svc *service) DeleteQuestion(ctx context.Context, disciplineID, assessment, questionID string) error {
	if !IsAssessment(assessment) {
		return ErrContentNotFound
	}
	return svc.repo.DeleteQuestion(ctx, disciplineID, assessment, questionID)
}

// Completeness & publication

// Completeness evaluates the discipline's current content. Nothing is cached.
func (svc *service) Completeness(ctx context.Context, disciplineID string) (Report, error) {
	snap, err := svc.repo.GetContentSnapshot(ctx, disciplineID)
	if err != nil {
		return Report{}, err
	}
	return Evaluate(snap)
}

func (svc *service) Publish(ctx context.Context, disciplineID string) (Discipline, error) {
	report, err := svc.Completeness(ctx, disciplineID)
	if err != nil {
		return Discipline{}, err
	}
	if !report.IsComplete {
		fields := make([]core.FieldError, 0, len(report.Requirements))
		for _, req := range report.Requirements {
			if !req.Satisfied {
				fields = append(fields, core.FieldError{Field: req.Key, Error: "requirement not satisfied"})
			}
		}
		return Discipline{}, core.NewValidationError(ErrIncomplete, fields...)
	}

	d, err := svc.repo.SetPublished(ctx, disciplineID, true, time.Now().UTC())
	if err != nil {
		return Discipline{}, errors.Wrap(err, "publishing discipline")
	}
	svc.sendPublishedMail(d, report)
	return d, nil
}

func (svc *service) Unpublish(ctx context.Context, disciplineID string) (Discipline, error) {
	return svc.repo.SetPublished(ctx, disciplineID, false, time.Now().UTC())
}

func (svc *service) sendPublishedMail(d Discipline, report Report) {
	if d.CoordinatorEmail == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: d.CoordinatorName, Address: d.CoordinatorEmail}},
		Subject:      "Disciplina publicada: " + d.Name,
		TemplateName: "discipline_published",
		TemplateData: struct {
			Discipline
			Items []Item
		}{Discipline: d, Items: report.Items()},
	})
}
