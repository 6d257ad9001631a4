package dummydb

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/trezcool/ead/core"
	"github.com/trezcool/ead/core/discipline"
)

type disciplineRepository struct {
	db *disciplineTables
}

var _ discipline.Repository = (*disciplineRepository)(nil) // interface compliance check

func NewDisciplineRepository(db *DB) discipline.Repository {
	return &disciplineRepository{db: db.discipline}
}

func (repo *disciplineRepository) CheckCodeUniqueness(_ context.Context, code string, excluded ...discipline.Discipline) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excludedIDs := lo.Map(excluded, func(d discipline.Discipline, _ int) string { return d.ID })
	for _, d := range repo.db.disciplines {
		if strings.EqualFold(d.Code, code) && !lo.Contains(excludedIDs, d.ID) {
			return discipline.ErrCodeExists
		}
	}
	return nil
}

func (repo *disciplineRepository) CreateDiscipline(_ context.Context, d discipline.Discipline) (discipline.Discipline, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	d.ID = uuid.NewString()
	d.CreatedAt = d.CreatedAt.Truncate(time.Microsecond)
	d.UpdatedAt = d.UpdatedAt.Truncate(time.Microsecond)
	repo.db.disciplines[d.ID] = &d
	return d, nil
}

func (repo *disciplineRepository) QueryDisciplines(_ context.Context, filter *discipline.QueryFilter, ordering []core.DBOrdering) ([]discipline.Discipline, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	disciplines := make([]discipline.Discipline, 0, len(repo.db.disciplines))
	for _, d := range repo.db.disciplines {
		disciplines = append(disciplines, *d)
	}
	if filter == nil {
		filter = new(discipline.QueryFilter)
	}

	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		disciplines = lo.Filter(disciplines, func(d discipline.Discipline, _ int) bool {
			return strings.Contains(strings.ToLower(d.Code), search) || strings.Contains(strings.ToLower(d.Name), search)
		})
	}
	if filter.IsPublished != nil {
		disciplines = lo.Filter(disciplines, func(d discipline.Discipline, _ int) bool { return d.IsPublished == *filter.IsPublished })
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "code", Ascending: true}}
	}
	sortBy(disciplines, ordering, disciplineFields)
	return disciplines, nil
}

func (repo *disciplineRepository) GetDiscipline(_ context.Context, id string) (discipline.Discipline, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if d, ok := repo.db.disciplines[id]; ok {
		return *d, nil
	}
	return discipline.Discipline{}, discipline.ErrNotFound
}

func (repo *disciplineRepository) UpdateDiscipline(_ context.Context, d discipline.Discipline) (discipline.Discipline, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.disciplines[d.ID]
	if !ok {
		return discipline.Discipline{}, discipline.ErrNotFound
	}
	updated := *orig
	updated.Code = d.Code
	updated.Name = d.Name
	updated.Description = d.Description
	updated.Workload = d.Workload
	updated.CoordinatorName = d.CoordinatorName
	updated.CoordinatorEmail = d.CoordinatorEmail
	updated.UpdatedAt = d.UpdatedAt.Truncate(time.Microsecond)
	repo.db.disciplines[d.ID] = &updated
	return updated, nil
}

func (repo *disciplineRepository) SetPublished(_ context.Context, id string, published bool, at time.Time) (discipline.Discipline, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.disciplines[id]
	if !ok {
		return discipline.Discipline{}, discipline.ErrNotFound
	}
	updated := *orig
	updated.IsPublished = published
	updated.UpdatedAt = at.Truncate(time.Microsecond)
	repo.db.disciplines[id] = &updated
	return updated, nil
}

// DeleteDisciplinesByID cascades to the disciplines' content.
func (repo *disciplineRepository) DeleteDisciplinesByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.disciplines, id)
	}
	for key, v := range repo.db.videos {
		if lo.Contains(ids, v.DisciplineID) {
			delete(repo.db.videos, key)
		}
	}
	for key := range repo.db.ebooks {
		if lo.Contains(ids, key.disciplineID) {
			delete(repo.db.ebooks, key)
		}
	}
	for key, q := range repo.db.questions {
		if lo.Contains(ids, q.DisciplineID) {
			delete(repo.db.questions, key)
		}
	}
	return nil
}

// Videos

func (repo *disciplineRepository) videosOf(disciplineID string) []discipline.Video {
	var videos []discipline.Video
	for _, v := range repo.db.videos {
		if v.DisciplineID == disciplineID {
			videos = append(videos, *v)
		}
	}
	sortBy(videos, []core.DBOrdering{{Field: "position", Ascending: true}}, videoFields)
	return videos
}

func (repo *disciplineRepository) AddVideo(_ context.Context, v discipline.Video) (discipline.Video, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.disciplines[v.DisciplineID]; !ok {
		return discipline.Video{}, discipline.ErrNotFound
	}
	v.ID = uuid.NewString()
	v.Position = lo.MaxBy(repo.videosOf(v.DisciplineID), func(a, b discipline.Video) bool { return a.Position > b.Position }).Position + 1
	v.CreatedAt = v.CreatedAt.Truncate(time.Microsecond)
	repo.db.videos[v.ID] = &v
	return v, nil
}

func (repo *disciplineRepository) QueryVideos(_ context.Context, disciplineID string) ([]discipline.Video, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.videosOf(disciplineID), nil
}

func (repo *disciplineRepository) DeleteVideo(_ context.Context, disciplineID, videoID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if v, ok := repo.db.videos[videoID]; !ok || v.DisciplineID != disciplineID {
		return discipline.ErrContentNotFound
	}
	delete(repo.db.videos, videoID)
	return nil
}

// E-books

func (repo *disciplineRepository) SaveEbook(_ context.Context, e discipline.Ebook) (discipline.Ebook, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.disciplines[e.DisciplineID]; !ok {
		return discipline.Ebook{}, discipline.ErrNotFound
	}
	e.UpdatedAt = e.UpdatedAt.Truncate(time.Microsecond)
	repo.db.ebooks[ebookKey{disciplineID: e.DisciplineID, kind: e.Kind}] = &e
	return e, nil
}

func (repo *disciplineRepository) QueryEbooks(_ context.Context, disciplineID string) ([]discipline.Ebook, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ebooks []discipline.Ebook
	for _, kind := range discipline.EbookKinds { // standard first
		if e, ok := repo.db.ebooks[ebookKey{disciplineID: disciplineID, kind: kind}]; ok {
			ebooks = append(ebooks, *e)
		}
	}
	return ebooks, nil
}

func (repo *disciplineRepository) DeleteEbook(_ context.Context, disciplineID, kind string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := ebookKey{disciplineID: disciplineID, kind: kind}
	if _, ok := repo.db.ebooks[key]; !ok {
		return discipline.ErrContentNotFound
	}
	delete(repo.db.ebooks, key)
	return nil
}

// Questions

func (repo *disciplineRepository) questionsOf(disciplineID, assessment string) []discipline.Question {
	var questions []discipline.Question
	for _, q := range repo.db.questions {
		if q.DisciplineID == disciplineID && q.Assessment == assessment {
			questions = append(questions, *q)
		}
	}
	sortBy(questions, []core.DBOrdering{{Field: "position", Ascending: true}}, questionFields)
	return questions
}

func (repo *disciplineRepository) AddQuestion(_ context.Context, q discipline.Question, limit int) (discipline.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.disciplines[q.DisciplineID]; !ok {
		return discipline.Question{}, discipline.ErrNotFound
	}
	existing := repo.questionsOf(q.DisciplineID, q.Assessment)
	if limit > 0 && len(existing) >= limit {
		return discipline.Question{}, discipline.ErrAssessmentFull
	}

	q.ID = uuid.NewString()
	q.Options = append([]string(nil), q.Options...)
	q.Position = lo.MaxBy(existing, func(a, b discipline.Question) bool { return a.Position > b.Position }).Position + 1
	q.CreatedAt = q.CreatedAt.Truncate(time.Microsecond)
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *disciplineRepository) QueryQuestions(_ context.Context, disciplineID, assessment string) ([]discipline.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.questionsOf(disciplineID, assessment), nil
}

func (repo *disciplineRepository) DeleteQuestion(_ context.Context, disciplineID, assessment, questionID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if q, ok := repo.db.questions[questionID]; !ok || q.DisciplineID != disciplineID || q.Assessment != assessment {
		return discipline.ErrContentNotFound
	}
	delete(repo.db.questions, questionID)
	return nil
}

// Snapshot

func (repo *disciplineRepository) GetContentSnapshot(_ context.Context, disciplineID string) (discipline.ContentSnapshot, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if _, ok := repo.db.disciplines[disciplineID]; !ok {
		return discipline.ContentSnapshot{}, discipline.ErrNotFound
	}
	_, hasEbook := repo.db.ebooks[ebookKey{disciplineID: disciplineID, kind: discipline.EbookStandard}]
	_, hasInteractive := repo.db.ebooks[ebookKey{disciplineID: disciplineID, kind: discipline.EbookInteractive}]
	return discipline.ContentSnapshot{
		VideoCount:                  len(repo.videosOf(disciplineID)),
		HasEbook:                    hasEbook,
		HasInteractiveEbook:         hasInteractive,
		SimuladoQuestionCount:       len(repo.questionsOf(disciplineID, discipline.AssessmentSimulado)),
		AvaliacaoFinalQuestionCount: len(repo.questionsOf(disciplineID, discipline.AssessmentAvaliacaoFinal)),
	}, nil
}

var (
	disciplineFields = map[string]func(d discipline.Discipline) interface{}{
		"code":         func(d discipline.Discipline) interface{} { return d.Code },
		"name":         func(d discipline.Discipline) interface{} { return strings.ToLower(d.Name) },
		"workload":     func(d discipline.Discipline) interface{} { return d.Workload },
		"is_published": func(d discipline.Discipline) interface{} { return d.IsPublished },
		"created_at":   func(d discipline.Discipline) interface{} { return d.CreatedAt },
		"updated_at":   func(d discipline.Discipline) interface{} { return d.UpdatedAt },
	}
	videoFields = map[string]func(v discipline.Video) interface{}{
		"position": func(v discipline.Video) interface{} { return v.Position },
	}
	questionFields = map[string]func(q discipline.Question) interface{}{
		"position": func(q discipline.Question) interface{} { return q.Position },
	}
)
