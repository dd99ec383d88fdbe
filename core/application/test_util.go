package application

import (
	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/question"
)

// NewServiceMock returns a Service that sends emails synchronously so
// tests can assert on them.
func NewServiceMock(
	repo Repository,
	depts DepartmentGetter,
	questions *question.Service,
	mailSvc core.EmailService,
	conf *core.Config,
) *Service {
	svc := NewService(repo, depts, questions, mailSvc, conf)
	svc.mailSync = true
	return svc
}
