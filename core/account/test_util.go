package account

import (
	"github.com/vitccacm/recruitment-portal/core"
)

// NewServiceMock returns a Service that sends emails synchronously so
// tests can assert on them.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		conf:     conf,
		mailSync: true,
	}
}
