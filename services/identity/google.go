package identitysvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/account"
)

var (
	ErrInvalidToken      = errors.New("invalid identity token")
	ErrEmailNotVerified  = errors.New("this google account's email is not verified")
	ErrAudienceMismatch  = errors.New("identity token was issued for another application")
	tokenInfoEndpoint    = "https://oauth2.googleapis.com/tokeninfo"
	defaultVerifyTimeout = 10 * time.Second
)

// Verifier turns a raw identity token into a verified identity.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (account.VerifiedIdentity, error)
}

type googleService struct {
	clientID string
	client   *http.Client
}

var _ Verifier = (*googleService)(nil)

// NewGoogleService verifies Google ID tokens against the tokeninfo
// endpoint.
func NewGoogleService(conf *core.Config) *googleService {
	return &googleService{
		clientID: conf.GoogleClientID,
		client:   &http.Client{Timeout: defaultVerifyTimeout},
	}
}

type tokenInfo struct {
	Audience      string `json:"aud"`
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (svc googleService) Verify(ctx context.Context, idToken string) (account.VerifiedIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenInfoEndpoint+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return account.VerifiedIdentity{}, errors.Wrap(err, "building tokeninfo request")
	}

	res, err := svc.client.Do(req)
	if err != nil {
		return account.VerifiedIdentity{}, errors.Wrap(err, "calling tokeninfo")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return account.VerifiedIdentity{}, ErrInvalidToken
	}

	var info tokenInfo
	if err = json.NewDecoder(res.Body).Decode(&info); err != nil {
		return account.VerifiedIdentity{}, errors.Wrap(err, "decoding tokeninfo response")
	}

	if info.Audience != svc.clientID {
		return account.VerifiedIdentity{}, ErrAudienceMismatch
	}
	if info.EmailVerified != "true" {
		return account.VerifiedIdentity{}, ErrEmailNotVerified
	}

	return account.VerifiedIdentity{
		GoogleID: info.Subject,
		Email:    info.Email,
		Name:     info.Name,
		PhotoURL: info.Picture,
	}, nil
}

type verifierMock struct {
	identity account.VerifiedIdentity
	err      error
}

var _ Verifier = (*verifierMock)(nil)

// NewVerifierMock returns a Verifier handing back a canned identity.
func NewVerifierMock(identity account.VerifiedIdentity, err error) *verifierMock {
	return &verifierMock{identity: identity, err: err}
}

func (svc *verifierMock) Verify(context.Context, string) (account.VerifiedIdentity, error) {
	return svc.identity, svc.err
}

// Returns changes the canned outcome for subsequent calls.
func (svc *verifierMock) Returns(identity account.VerifiedIdentity, err error) {
	svc.identity = identity
	svc.err = err
}
