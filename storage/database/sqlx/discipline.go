package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ead/core"
	"github.com/trezcool/ead/core/discipline"
	"github.com/trezcool/ead/core/media"
)

const (
	disciplineColumns = `id, code, name, description, workload, coordinator_name, coordinator_email, is_published, created_at, updated_at`
	videoColumns      = `id, discipline_id, title, url, declared_source, position, created_at`
	ebookColumns      = `discipline_id, kind, title, url, updated_at`
	questionColumns   = `id, discipline_id, assessment, statement, options, correct_option, position, created_at`
)

type (
	disciplineRow struct {
		ID               string      `db:"id"`
		Code             string      `db:"code"`
		Name             string      `db:"name"`
		Description      null.String `db:"description"`
		Workload         int         `db:"workload"`
		CoordinatorName  null.String `db:"coordinator_name"`
		CoordinatorEmail null.String `db:"coordinator_email"`
		IsPublished      bool        `db:"is_published"`
		CreatedAt        time.Time   `db:"created_at"`
		UpdatedAt        time.Time   `db:"updated_at"`
	}

	videoRow struct {
		ID             string      `db:"id"`
		DisciplineID   string      `db:"discipline_id"`
		Title          string      `db:"title"`
		URL            string      `db:"url"`
		DeclaredSource null.String `db:"declared_source"`
		Position       int         `db:"position"`
		CreatedAt      time.Time   `db:"created_at"`
	}

	ebookRow struct {
		DisciplineID string      `db:"discipline_id"`
		Kind         string      `db:"kind"`
		Title        null.String `db:"title"`
		URL          string      `db:"url"`
		UpdatedAt    time.Time   `db:"updated_at"`
	}

	questionRow struct {
		ID            string         `db:"id"`
		DisciplineID  string         `db:"discipline_id"`
		Assessment    string         `db:"assessment"`
		Statement     string         `db:"statement"`
		Options       pq.StringArray `db:"options"`
		CorrectOption int            `db:"correct_option"`
		Position      int            `db:"position"`
		CreatedAt     time.Time      `db:"created_at"`
	}
)

func toDisciplineRow(d discipline.Discipline) disciplineRow {
	return disciplineRow{
		ID:               d.ID,
		Code:             d.Code,
		Name:             d.Name,
		Description:      null.NewString(d.Description, d.Description != ""),
		Workload:         d.Workload,
		CoordinatorName:  null.NewString(d.CoordinatorName, d.CoordinatorName != ""),
		CoordinatorEmail: null.NewString(d.CoordinatorEmail, d.CoordinatorEmail != ""),
		IsPublished:      d.IsPublished,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
}

func (row disciplineRow) discipline() discipline.Discipline {
	return discipline.Discipline{
		ID:               row.ID,
		Code:             row.Code,
		Name:             row.Name,
		Description:      row.Description.String,
		Workload:         row.Workload,
		CoordinatorName:  row.CoordinatorName.String,
		CoordinatorEmail: row.CoordinatorEmail.String,
		IsPublished:      row.IsPublished,
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}
}

func (row videoRow) video() discipline.Video {
	return discipline.Video{
		ID:             row.ID,
		DisciplineID:   row.DisciplineID,
		Title:          row.Title,
		URL:            row.URL,
		DeclaredSource: media.ParseDeclaredSource(row.DeclaredSource.String),
		Position:       row.Position,
		CreatedAt:      row.CreatedAt.UTC(),
	}
}

func (row ebookRow) ebook() discipline.Ebook {
	return discipline.Ebook{
		DisciplineID: row.DisciplineID,
		Kind:         row.Kind,
		Title:        row.Title.String,
		URL:          row.URL,
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func (row questionRow) question() discipline.Question {
	return discipline.Question{
		ID:            row.ID,
		DisciplineID:  row.DisciplineID,
		Assessment:    row.Assessment,
		Statement:     row.Statement,
		Options:       []string(row.Options),
		CorrectOption: row.CorrectOption,
		Position:      row.Position,
		CreatedAt:     row.CreatedAt.UTC(),
	}
}

var disciplineOrderFields = map[string]string{
	"code":         "code",
	"name":         "LOWER(name)",
	"workload":     "workload",
	"is_published": "is_published",
	"created_at":   "created_at",
	"updated_at":   "updated_at",
}

type disciplineRepository struct {
	db core.DB
}

var _ discipline.Repository = (*disciplineRepository)(nil) // interface compliance check

func NewDisciplineRepository(db core.DB) discipline.Repository {
	return &disciplineRepository{db: db}
}

// Disciplines

func (repo *disciplineRepository) CheckCodeUniqueness(ctx context.Context, code string, excluded ...discipline.Discipline) error {
	w := new(where)
	w.add("UPPER(code) = UPPER(?)", code)
	if len(excluded) > 0 {
		ids := validIDs(lo.Map(excluded, func(d discipline.Discipline, _ int) string { return d.ID })...)
		w.add("NOT (id = ANY(?::uuid[]))", pq.Array(ids))
	}

	var found bool
	q := rebind(`SELECT EXISTS (SELECT 1 FROM discipline` + w.String() + `)`)
	if err := repo.db.GetContext(ctx, &found, q, w.args...); err != nil {
		return errors.Wrap(err, "checking discipline code uniqueness")
	}
	if found {
		return discipline.ErrCodeExists
	}
	return nil
}

func (repo *disciplineRepository) CreateDiscipline(ctx context.Context, d discipline.Discipline) (discipline.Discipline, error) {
	d.ID = uuid.NewString()
	q := `INSERT INTO discipline (` + disciplineColumns + `)
		VALUES (:id, :code, :name, :description, :workload, :coordinator_name, :coordinator_email, :is_published, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toDisciplineRow(d)); err != nil {
		if isUniqueViolation(err) {
			return discipline.Discipline{}, discipline.ErrCodeExists
		}
		return discipline.Discipline{}, errors.Wrap(err, "inserting discipline")
	}
	return repo.GetDiscipline(ctx, d.ID)
}

func (repo *disciplineRepository) QueryDisciplines(ctx context.Context, filter *discipline.QueryFilter, ordering []core.DBOrdering) ([]discipline.Discipline, error) {
	w := new(where)
	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("code ILIKE ? OR name ILIKE ?", val, val)
		}
		if filter.IsPublished != nil {
			w.add("is_published = ?", *filter.IsPublished)
		}
	}

	q := `SELECT ` + disciplineColumns + ` FROM discipline` + w.String() +
		orderBy(ordering, disciplineOrderFields, core.DBOrdering{Field: "code", Ascending: true})
	var rows []disciplineRow
	if err := repo.db.SelectContext(ctx, &rows, rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying disciplines")
	}
	return lo.Map(rows, func(row disciplineRow, _ int) discipline.Discipline { return row.discipline() }), nil
}

func (repo *disciplineRepository) GetDiscipline(ctx context.Context, id string) (discipline.Discipline, error) {
	if len(validIDs(id)) == 0 {
		return discipline.Discipline{}, discipline.ErrNotFound
	}
	var row disciplineRow
	q := `SELECT ` + disciplineColumns + ` FROM discipline WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return discipline.Discipline{}, trapNoRows(err, discipline.ErrNotFound, "finding discipline")
	}
	return row.discipline(), nil
}

func (repo *disciplineRepository) UpdateDiscipline(ctx context.Context, d discipline.Discipline) (discipline.Discipline, error) {
	if len(validIDs(d.ID)) == 0 {
		return discipline.Discipline{}, discipline.ErrNotFound
	}
	q := `UPDATE discipline SET
			code = :code, name = :name, description = :description, workload = :workload,
			coordinator_name = :coordinator_name, coordinator_email = :coordinator_email, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toDisciplineRow(d))
	if err != nil {
		if isUniqueViolation(err) {
			return discipline.Discipline{}, discipline.ErrCodeExists
		}
		return discipline.Discipline{}, errors.Wrap(err, "updating discipline")
	}
	if err = checkAffected(res, discipline.ErrNotFound, "updating discipline"); err != nil {
		return discipline.Discipline{}, err
	}
	return repo.GetDiscipline(ctx, d.ID)
}

func (repo *disciplineRepository) SetPublished(ctx context.Context, id string, published bool, at time.Time) (discipline.Discipline, error) {
	if len(validIDs(id)) == 0 {
		return discipline.Discipline{}, discipline.ErrNotFound
	}
	q := `UPDATE discipline SET is_published = $2, updated_at = $3 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, id, published, at.UTC())
	if err != nil {
		return discipline.Discipline{}, errors.Wrap(err, "setting discipline publication")
	}
	if err = checkAffected(res, discipline.ErrNotFound, "setting discipline publication"); err != nil {
		return discipline.Discipline{}, err
	}
	return repo.GetDiscipline(ctx, id)
}

// DeleteDisciplinesByID cascades to the disciplines' content (ON DELETE CASCADE).
func (repo *disciplineRepository) DeleteDisciplinesByID(ctx context.Context, ids ...string) error {
	if ids = validIDs(ids...); len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM discipline WHERE id = ANY($1::uuid[])`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting disciplines")
	}
	return nil
}

// Videos

func (repo *disciplineRepository) AddVideo(ctx context.Context, v discipline.Video) (discipline.Video, error) {
	var row videoRow
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockDiscipline(ctx, tx, v.DisciplineID); err != nil {
			return err
		}
		q := `INSERT INTO discipline_video (` + videoColumns + `)
			SELECT $1::uuid, $2::uuid, $3::text, $4::text, $5::text, COALESCE(MAX(position), 0) + 1, $6::timestamptz
			FROM discipline_video WHERE discipline_id = $2
			RETURNING ` + videoColumns
		declared := null.NewString(string(v.DeclaredSource), v.DeclaredSource != "")
		return tx.GetContext(ctx, &row, q, uuid.NewString(), v.DisciplineID, v.Title, v.URL, declared, v.CreatedAt.UTC())
	})
	if err != nil {
		return discipline.Video{}, err
	}
	return row.video(), nil
}

func (repo *disciplineRepository) QueryVideos(ctx context.Context, disciplineID string) ([]discipline.Video, error) {
	if len(validIDs(disciplineID)) == 0 {
		return nil, nil
	}
	var rows []videoRow
	q := `SELECT ` + videoColumns + ` FROM discipline_video WHERE discipline_id = $1 ORDER BY position, created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, disciplineID); err != nil {
		return nil, errors.Wrap(err, "querying videos")
	}
	return lo.Map(rows, func(row videoRow, _ int) discipline.Video { return row.video() }), nil
}

func (repo *disciplineRepository) DeleteVideo(ctx context.Context, disciplineID, videoID string) error {
	if len(validIDs(disciplineID, videoID)) != 2 {
		return discipline.ErrContentNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM discipline_video WHERE id = $1 AND discipline_id = $2`, videoID, disciplineID)
	if err != nil {
		return errors.Wrap(err, "deleting video")
	}
	return checkAffected(res, discipline.ErrContentNotFound, "deleting video")
}

// E-books

func (repo *disciplineRepository) SaveEbook(ctx context.Context, e discipline.Ebook) (discipline.Ebook, error) {
	if len(validIDs(e.DisciplineID)) == 0 {
		return discipline.Ebook{}, discipline.ErrNotFound
	}
	var row ebookRow
	q := `INSERT INTO discipline_ebook (` + ebookColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (discipline_id, kind) DO UPDATE SET title = EXCLUDED.title, url = EXCLUDED.url, updated_at = EXCLUDED.updated_at
		RETURNING ` + ebookColumns
	title := null.NewString(e.Title, e.Title != "")
	if err := repo.db.GetContext(ctx, &row, q, e.DisciplineID, e.Kind, title, e.URL, e.UpdatedAt.UTC()); err != nil {
		if isForeignKeyViolation(err) {
			return discipline.Ebook{}, discipline.ErrNotFound
		}
		return discipline.Ebook{}, errors.Wrap(err, "saving ebook")
	}
	return row.ebook(), nil
}

func (repo *disciplineRepository) QueryEbooks(ctx context.Context, disciplineID string) ([]discipline.Ebook, error) {
	if len(validIDs(disciplineID)) == 0 {
		return nil, nil
	}
	var rows []ebookRow
	// standard first
	q := `SELECT ` + ebookColumns + ` FROM discipline_ebook WHERE discipline_id = $1 ORDER BY kind = 'interactive', kind`
	if err := repo.db.SelectContext(ctx, &rows, q, disciplineID); err != nil {
		return nil, errors.Wrap(err, "querying ebooks")
	}
	return lo.Map(rows, func(row ebookRow, _ int) discipline.Ebook { return row.ebook() }), nil
}

func (repo *disciplineRepository) DeleteEbook(ctx context.Context, disciplineID, kind string) error {
	if len(validIDs(disciplineID)) == 0 {
		return discipline.ErrContentNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM discipline_ebook WHERE discipline_id = $1 AND kind = $2`, disciplineID, kind)
	if err != nil {
		return errors.Wrap(err, "deleting ebook")
	}
	return checkAffected(res, discipline.ErrContentNotFound, "deleting ebook")
}

// Questions

// AddQuestion locks the discipline row so concurrent additions cannot overshoot limit.
func (repo *disciplineRepository) AddQuestion(ctx context.Context, q discipline.Question, limit int) (discipline.Question, error) {
	var row questionRow
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockDiscipline(ctx, tx, q.DisciplineID); err != nil {
			return err
		}

		var count, maxPos int
		err := tx.QueryRowxContext(ctx,
			`SELECT COUNT(*), COALESCE(MAX(position), 0) FROM discipline_question WHERE discipline_id = $1 AND assessment = $2`,
			q.DisciplineID, q.Assessment,
		).Scan(&count, &maxPos)
		if err != nil {
			return errors.Wrap(err, "counting questions")
		}
		if limit > 0 && count >= limit {
			return discipline.ErrAssessmentFull
		}

		insert := `INSERT INTO discipline_question (` + questionColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING ` + questionColumns
		return tx.GetContext(ctx, &row, insert,
			uuid.NewString(), q.DisciplineID, q.Assessment, q.Statement, pq.StringArray(q.Options), q.CorrectOption, maxPos+1, q.CreatedAt.UTC())
	})
	if err != nil {
		return discipline.Question{}, err
	}
	return row.question(), nil
}

func (repo *disciplineRepository) QueryQuestions(ctx context.Context, disciplineID, assessment string) ([]discipline.Question, error) {
	if len(validIDs(disciplineID)) == 0 {
		return nil, nil
	}
	var rows []questionRow
	q := `SELECT ` + questionColumns + ` FROM discipline_question
		WHERE discipline_id = $1 AND assessment = $2 ORDER BY position, created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, disciplineID, assessment); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	return lo.Map(rows, func(row questionRow, _ int) discipline.Question { return row.question() }), nil
}

func (repo *disciplineRepository) DeleteQuestion(ctx context.Context, disciplineID, assessment, questionID string) error {
	if len(validIDs(disciplineID, questionID)) != 2 {
		return discipline.ErrContentNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM discipline_question WHERE id = $1 AND discipline_id = $2 AND assessment = $3`,
		questionID, disciplineID, assessment,
	)
	if err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return checkAffected(res, discipline.ErrContentNotFound, "deleting question")
}

// Snapshot

// GetContentSnapshot counts everything in a single statement so the counts are consistent.
func (repo *disciplineRepository) GetContentSnapshot(ctx context.Context, disciplineID string) (discipline.ContentSnapshot, error) {
	if len(validIDs(disciplineID)) == 0 {
		return discipline.ContentSnapshot{}, discipline.ErrNotFound
	}
	var snap struct {
		Videos      int  `db:"videos"`
		Ebook       bool `db:"ebook"`
		Interactive bool `db:"interactive"`
		Simulado    int  `db:"simulado"`
		Final       int  `db:"final"`
	}
	q := `SELECT
			(SELECT COUNT(*) FROM discipline_video v WHERE v.discipline_id = d.id) AS videos,
			EXISTS (SELECT 1 FROM discipline_ebook e WHERE e.discipline_id = d.id AND e.kind = $2) AS ebook,
			EXISTS (SELECT 1 FROM discipline_ebook e WHERE e.discipline_id = d.id AND e.kind = $3) AS interactive,
			(SELECT COUNT(*) FROM discipline_question q WHERE q.discipline_id = d.id AND q.assessment = $4) AS simulado,
			(SELECT COUNT(*) FROM discipline_question q WHERE q.discipline_id = d.id AND q.assessment = $5) AS final
		FROM discipline d WHERE d.id = $1`
	err := repo.db.GetContext(ctx, &snap, q, disciplineID,
		discipline.EbookStandard, discipline.EbookInteractive, discipline.AssessmentSimulado, discipline.AssessmentAvaliacaoFinal)
	if err != nil {
		return discipline.ContentSnapshot{}, trapNoRows(err, discipline.ErrNotFound, "counting discipline content")
	}
	return discipline.ContentSnapshot{
		VideoCount:                  snap.Videos,
		HasEbook:                    snap.Ebook,
		HasInteractiveEbook:         snap.Interactive,
		SimuladoQuestionCount:       snap.Simulado,
		AvaliacaoFinalQuestionCount: snap.Final,
	}, nil
}

func (repo *disciplineRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func lockDiscipline(ctx context.Context, tx *sqlx.Tx, id string) error {
	if len(validIDs(id)) == 0 {
		return discipline.ErrNotFound
	}
	var locked string
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM discipline WHERE id = $1 FOR UPDATE`, id); err != nil {
		return trapNoRows(err, discipline.ErrNotFound, "locking discipline")
	}
	return nil
}
