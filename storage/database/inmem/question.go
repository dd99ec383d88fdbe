package inmemdb

import (
	"context"
	"sort"

	"github.com/vitccacm/recruitment-portal/core/question"
)

type questionRepository struct {
	db *DB
}

func NewQuestionRepository(db *DB) question.Repository {
	return &questionRepository{db: db}
}

func (repo *questionRepository) CreateQuestion(_ context.Context, q question.Question) (question.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *questionRepository) GetQuestion(_ context.Context, id string) (question.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if q, ok := repo.db.questions[id]; ok {
		return *q, nil
	}
	return question.Question{}, question.ErrNotFound
}

func (repo *questionRepository) QueryQuestions(_ context.Context, filter *question.QueryFilter) ([]question.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	questions := make([]question.Question, 0)
	for _, q := range repo.db.questions {
		if filter != nil && filter.DepartmentID != "" && q.DepartmentID != filter.DepartmentID {
			continue
		}
		questions = append(questions, *q)
	}
	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].Order != questions[j].Order {
			return questions[i].Order < questions[j].Order
		}
		return questions[i].CreatedAt.Before(questions[j].CreatedAt)
	})
	return questions, nil
}

func (repo *questionRepository) UpdateQuestion(_ context.Context, q question.Question, isRequired *bool) (question.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.questions[q.ID]
	if !ok {
		return question.Question{}, question.ErrNotFound
	}
	if isRequired != nil {
		q.IsRequired = *isRequired
	} else {
		q.IsRequired = orig.IsRequired
	}

	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *questionRepository) DeleteQuestionsByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.questions, id)
		for ansID, ans := range repo.db.answers {
			if ans.QuestionID == id {
				delete(repo.db.answers, ansID)
			}
		}
	}
	return nil
}

func (repo *questionRepository) CreateAnswers(_ context.Context, answers ...question.Answer) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, ans := range answers {
		a := ans
		repo.db.answers[a.ID] = &a
	}
	return nil
}

func (repo *questionRepository) QueryAnswersByApplication(_ context.Context, applicationID string) ([]question.Answer, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	answers := make([]question.Answer, 0)
	for _, ans := range repo.db.answers {
		if ans.ApplicationID == applicationID {
			answers = append(answers, *ans)
		}
	}
	sort.SliceStable(answers, func(i, j int) bool { return answers[i].CreatedAt.Before(answers[j].CreatedAt) })
	return answers, nil
}
