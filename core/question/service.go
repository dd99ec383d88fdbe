package question

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("question not found")

type (
	Repository interface {
		CreateQuestion(ctx context.Context, q Question) (Question, error)
		GetQuestion(ctx context.Context, id string) (Question, error)
		// QueryQuestions returns questions ordered by (Order, CreatedAt).
		QueryQuestions(ctx context.Context, filter *QueryFilter) ([]Question, error)
		UpdateQuestion(ctx context.Context, q Question, isRequired *bool) (Question, error)
		DeleteQuestionsByID(ctx context.Context, ids ...string) error

		CreateAnswers(ctx context.Context, answers ...Answer) error
		QueryAnswersByApplication(ctx context.Context, applicationID string) ([]Answer, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nq NewQuestion) (Question, error) {
	now := time.Now().UTC()
	q := Question{
		ID:                uuid.New().String(),
		DepartmentID:      nq.DepartmentID,
		Text:              nq.Text,
		Type:              nq.Type,
		Options:           nq.Options,
		IsRequired:        nq.IsRequired,
		FileMaxSize:       nq.FileMaxSize,
		AllowedExtensions: nq.AllowedExtensions,
		Order:             nq.Order,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return svc.repo.CreateQuestion(ctx, q)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Question, error) {
	return svc.repo.GetQuestion(ctx, id)
}

func (svc *Service) QueryByDepartment(ctx context.Context, departmentID string) ([]Question, error) {
	return svc.repo.QueryQuestions(ctx, &QueryFilter{DepartmentID: departmentID})
}

func (svc *Service) Update(ctx context.Context, orig Question, uq UpdateQuestion) (Question, error) {
	q := orig
	q.Text = uq.Text
	q.Type = uq.Type
	if uq.Options != nil {
		q.Options = uq.Options
	}
	if uq.FileMaxSize != nil {
		q.FileMaxSize = *uq.FileMaxSize
	}
	if uq.AllowedExtensions != nil {
		q.AllowedExtensions = *uq.AllowedExtensions
	}
	if uq.Order != nil {
		q.Order = *uq.Order
	}
	q.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateQuestion(ctx, q, uq.IsRequired)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteQuestionsByID(ctx, ids...)
}

// SaveAnswers persists a submitted application's answers. Responses to
// choice questions arrive pre-joined; file answers carry the stored path.
func (svc *Service) SaveAnswers(ctx context.Context, answers ...Answer) error {
	now := time.Now().UTC()
	for i := range answers {
		if answers[i].ID == "" {
			answers[i].ID = uuid.New().String()
		}
		answers[i].CreatedAt = now
	}
	return svc.repo.CreateAnswers(ctx, answers...)
}

func (svc *Service) AnswersByApplication(ctx context.Context, applicationID string) ([]Answer, error) {
	return svc.repo.QueryAnswersByApplication(ctx, applicationID)
}

// BuildAnswers turns validated inputs into Answer rows. filePaths maps
// question ID to the stored upload path for file questions.
func BuildAnswers(applicationID string, questions []Question, inputs map[string]AnswerInput, filePaths map[string]string) []Answer {
	var answers []Answer
	for _, q := range questions {
		in, ok := inputs[q.ID]
		if !ok {
			continue
		}
		ans := Answer{
			QuestionID:    q.ID,
			ApplicationID: applicationID,
		}
		if q.Type == TypeFileUpload {
			path, stored := filePaths[q.ID]
			if !stored {
				continue
			}
			ans.FilePath = path
		} else {
			if len(in.Values) == 0 || in.Values[0] == "" {
				continue
			}
			ans.Response = strings.Join(in.Values, ", ")
		}
		answers = append(answers, ans)
	}
	return answers
}
