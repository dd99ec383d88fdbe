package application

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/account"
	"github.com/vitccacm/recruitment-portal/core/department"
	"github.com/vitccacm/recruitment-portal/core/question"
)

var (
	// errors
	ErrNotFound          = errors.New("application not found")
	ErrAlreadyApplied    = errors.New("you have already applied to this department")
	ErrDepartmentClosed  = errors.New("this department is not accepting applications")
	ErrProfileIncomplete = errors.New("complete at least 75% of your profile before applying")
)

type (
	Repository interface {
		CreateApplication(ctx context.Context, app Application) (Application, error)
		GetApplication(ctx context.Context, filter GetFilter) (Application, error)
		// QueryApplications applies AND operation on available QueryFilter fields.
		QueryApplications(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Application, error)
		UpdateApplication(ctx context.Context, app Application) (Application, error)
		DeleteApplicationsByID(ctx context.Context, ids ...string) error
	}

	// DepartmentGetter is the slice of the department service needed to
	// gate submissions.
	DepartmentGetter interface {
		GetByID(ctx context.Context, id string) (department.Department, error)
	}

	Service struct {
		repo      Repository
		depts     DepartmentGetter
		questions *question.Service
		mailSvc   core.EmailService
		conf      *core.Config

		// tests flip this to send mails synchronously
		mailSync bool
	}
)

func NewService(
	repo Repository,
	depts DepartmentGetter,
	questions *question.Service,
	mailSvc core.EmailService,
	conf *core.Config,
) *Service {
	return &Service{
		repo:      repo,
		depts:     depts,
		questions: questions,
		mailSvc:   mailSvc,
		conf:      conf,
	}
}

// Submit runs the whole application pipeline: profile gate, recruitment
// window, duplicate check, answer validation, persistence and the
// confirmation email. filePaths maps question IDs to stored upload paths.
func (svc *Service) Submit(
	ctx context.Context,
	student account.Account,
	na NewApplication,
	inputs map[string]question.AnswerInput,
	filePaths map[string]string,
) (Application, error) {
	if !student.CanApply() {
		return Application{}, core.NewValidationError(ErrProfileIncomplete)
	}

	dept, err := svc.depts.GetByID(ctx, na.DepartmentID)
	if err != nil {
		if errors.Cause(err) == department.ErrNotFound {
			return Application{}, core.NewValidationError(err, core.FieldError{Field: "department_id", Error: err.Error()})
		}
		return Application{}, errors.Wrap(err, "finding department")
	}
	if !dept.IsOpen() {
		return Application{}, core.NewValidationError(ErrDepartmentClosed)
	}

	if _, err = svc.repo.GetApplication(ctx, GetFilter{StudentID: student.ID, DepartmentID: dept.ID}); err == nil {
		return Application{}, core.NewValidationError(ErrAlreadyApplied)
	} else if errors.Cause(err) != ErrNotFound {
		return Application{}, errors.Wrap(err, "checking for an existing application")
	}

	questions, err := svc.questions.QueryByDepartment(ctx, dept.ID)
	if err != nil {
		return Application{}, errors.Wrap(err, "loading department questions")
	}
	if err = question.ValidateAnswers(questions, inputs); err != nil {
		return Application{}, err
	}

	now := time.Now().UTC()
	app := Application{
		ID:           uuid.New().String(),
		StudentID:    student.ID,
		DepartmentID: dept.ID,
		Position:     na.Position,
		CoverLetter:  na.CoverLetter,
		Status:       StatusPending,
		AppliedAt:    now,
		UpdatedAt:    now,
	}
	if app, err = svc.repo.CreateApplication(ctx, app); err != nil {
		return Application{}, err
	}

	if answers := question.BuildAnswers(app.ID, questions, inputs, filePaths); len(answers) > 0 {
		if err = svc.questions.SaveAnswers(ctx, answers...); err != nil {
			return Application{}, errors.Wrap(err, "saving answers")
		}
	}

	svc.sendMail(func() { svc.sendApplicationReceivedMail(student, dept) })
	return app, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Application, error) {
	return svc.repo.GetApplication(ctx, GetFilter{ID: id})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Application, error) {
	return svc.repo.QueryApplications(ctx, filter, ordering)
}

// QueryByStudent returns the student's applications, newest first.
func (svc *Service) QueryByStudent(ctx context.Context, studentID string) ([]Application, error) {
	return svc.repo.QueryApplications(
		ctx,
		&QueryFilter{StudentID: studentID},
		[]core.DBOrdering{{Field: "applied_at"}},
	)
}

func (svc *Service) UpdateStatus(ctx context.Context, app Application, status string) (Application, error) {
	app.Status = status
	app.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateApplication(ctx, app)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteApplicationsByID(ctx, ids...)
}

// Stats summarizes applications, optionally scoped to one department.
func (svc *Service) Stats(ctx context.Context, departmentID string) (Stats, error) {
	apps, err := svc.repo.QueryApplications(ctx, &QueryFilter{DepartmentID: departmentID}, nil)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(apps)}
	for _, app := range apps {
		switch app.Status {
		case StatusPending:
			stats.Pending++
		case StatusAccepted:
			stats.Accepted++
		case StatusRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

// Emails

func (svc *Service) sendMail(send func()) {
	if svc.mailSync {
		send()
		return
	}
	go send()
}

func (svc *Service) sendApplicationReceivedMail(student account.Account, dept department.Department) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      fmt.Sprintf("Your application to %s", dept.Name),
		TemplateName: "application-received",
		TemplateData: struct {
			Name       string
			Department string
		}{student.Name, dept.Name},
	})
}
