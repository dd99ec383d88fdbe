package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core/question"
)

var questionColumns = []string{
	"id", "department_id", "text", "type", "options", "is_required",
	"file_max_size", "allowed_extensions", "ord", "created_at", "updated_at",
}

type questionRow struct {
	ID                string         `db:"id"`
	DepartmentID      string         `db:"department_id"`
	Text              string         `db:"text"`
	Type              string         `db:"type"`
	Options           pq.StringArray `db:"options"`
	IsRequired        bool           `db:"is_required"`
	FileMaxSize       int            `db:"file_max_size"`
	AllowedExtensions string         `db:"allowed_extensions"`
	Order             int            `db:"ord"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (row questionRow) toQuestion() question.Question {
	return question.Question{
		ID:                row.ID,
		DepartmentID:      row.DepartmentID,
		Text:              row.Text,
		Type:              row.Type,
		Options:           row.Options,
		IsRequired:        row.IsRequired,
		FileMaxSize:       row.FileMaxSize,
		AllowedExtensions: row.AllowedExtensions,
		Order:             row.Order,
		CreatedAt:         row.CreatedAt.UTC(),
		UpdatedAt:         row.UpdatedAt.UTC(),
	}
}

type questionRepository struct {
	db *sqlx.DB
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *sqlx.DB) *questionRepository {
	return &questionRepository{db: db}
}

func (repo questionRepository) get(ctx context.Context, id string) (question.Question, error) {
	query, args, err := psql.Select(questionColumns...).From("questions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return question.Question{}, errors.Wrap(err, "building query")
	}

	var row questionRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return question.Question{}, trapNoRowsErr(err, question.ErrNotFound, "getting question")
	}
	return row.toQuestion(), nil
}

func (repo questionRepository) CreateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	query, args, err := psql.Insert("questions").Columns(questionColumns...).Values(
		q.ID, q.DepartmentID, q.Text, q.Type, pq.StringArray(q.Options), q.IsRequired,
		q.FileMaxSize, q.AllowedExtensions, q.Order, q.CreatedAt.UTC(), q.UpdatedAt.UTC(),
	).ToSql()
	if err != nil {
		return question.Question{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return question.Question{}, errors.Wrap(err, "inserting question")
	}
	return q, nil
}

func (repo questionRepository) GetQuestion(ctx context.Context, id string) (question.Question, error) {
	return repo.get(ctx, id)
}

func (repo questionRepository) QueryQuestions(ctx context.Context, filter *question.QueryFilter) ([]question.Question, error) {
	qb := psql.Select(questionColumns...).From("questions").OrderBy("ord ASC", "created_at ASC")
	if filter != nil && filter.DepartmentID != "" {
		qb = qb.Where(sq.Eq{"department_id": filter.DepartmentID})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []questionRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}

	questions := make([]question.Question, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, row.toQuestion())
	}
	return questions, nil
}

func (repo questionRepository) UpdateQuestion(ctx context.Context, q question.Question, isRequired *bool) (question.Question, error) {
	set := map[string]interface{}{
		"text":               q.Text,
		"type":               q.Type,
		"options":            pq.StringArray(q.Options),
		"file_max_size":      q.FileMaxSize,
		"allowed_extensions": q.AllowedExtensions,
		"ord":                q.Order,
		"updated_at":         q.UpdatedAt.UTC(),
	}
	if isRequired != nil {
		set["is_required"] = *isRequired
	}

	query, args, err := psql.Update("questions").SetMap(set).Where(sq.Eq{"id": q.ID}).ToSql()
	if err != nil {
		return question.Question{}, errors.Wrap(err, "building query")
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return question.Question{}, errors.Wrap(err, "updating question")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return question.Question{}, question.ErrNotFound
	}
	return repo.get(ctx, q.ID)
}

func (repo questionRepository) DeleteQuestionsByID(ctx context.Context, ids ...string) error {
	query, args, err := psql.Delete("questions").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting questions")
	}
	return nil
}

func (repo questionRepository) CreateAnswers(ctx context.Context, answers ...question.Answer) error {
	if len(answers) == 0 {
		return nil
	}

	qb := psql.Insert("answers").Columns("id", "question_id", "application_id", "response", "file_path", "created_at")
	for _, ans := range answers {
		qb = qb.Values(ans.ID, ans.QuestionID, ans.ApplicationID, ans.Response, ans.FilePath, ans.CreatedAt.UTC())
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "inserting answers")
	}
	return nil
}

func (repo questionRepository) QueryAnswersByApplication(ctx context.Context, applicationID string) ([]question.Answer, error) {
	query, args, err := psql.Select("id", "question_id", "application_id", "response", "file_path", "created_at").
		From("answers").
		Where(sq.Eq{"application_id": applicationID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []struct {
		ID            string    `db:"id"`
		QuestionID    string    `db:"question_id"`
		ApplicationID string    `db:"application_id"`
		Response      string    `db:"response"`
		FilePath      string    `db:"file_path"`
		CreatedAt     time.Time `db:"created_at"`
	}
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying answers")
	}

	answers := make([]question.Answer, 0, len(rows))
	for _, row := range rows {
		answers = append(answers, question.Answer{
			ID:            row.ID,
			QuestionID:    row.QuestionID,
			ApplicationID: row.ApplicationID,
			Response:      row.Response,
			FilePath:      row.FilePath,
			CreatedAt:     row.CreatedAt.UTC(),
		})
	}
	return answers, nil
}
