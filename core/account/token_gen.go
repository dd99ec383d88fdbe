package account

// Stateless password reset token generator. Tokens embed a timestamp
// and are invalidated by use (the account's password hash and last
// login are part of the HMAC input) or by expiry.

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core"
)

var (
	secretKey                 []byte
	passwordResetTimeoutDelta time.Duration

	// mockable for tests
	nowFunc = time.Now

	errInvalidToken = core.NewValidationError(errors.New("invalid token"))
	errTokenExpired = core.NewValidationError(errors.New("expired token"))
)

// InitResetTokenGenerator wires the generator to the app configuration.
// Must be called once at startup before tokens are made or verified.
func InitResetTokenGenerator(conf *core.Config) {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
}

// MakeToken returns a token tied to the account's current state.
func MakeToken(acct Account) string {
	return tokenWithTimestamp(acct, nowFunc().UTC().Unix())
}

func tokenWithTimestamp(acct Account, ts int64) string {
	tsB36 := strconv.FormatInt(ts, 36)
	hash := saltedHMAC(tsB36 + hashValue(acct))
	return fmt.Sprintf("%s-%s", tsB36, hash)
}

// hashValue produces an account state that changes on password change
// and on login, so issued tokens become single-use.
func hashValue(acct Account) string {
	lastLogin := ""
	if !acct.LastLogin.IsZero() {
		lastLogin = strconv.FormatInt(acct.LastLogin.UTC().Unix(), 10)
	}
	return acct.ID + string(acct.PasswordHash) + lastLogin
}

func saltedHMAC(value string) string {
	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyToken checks that the token is valid for the account and has
// not expired.
func VerifyToken(acct Account, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) != 2 {
		return errInvalidToken
	}

	ts, err := strconv.ParseInt(parts[0], 36, 64)
	if err != nil {
		return errInvalidToken
	}

	// constant-time check against a freshly computed token
	expected := tokenWithTimestamp(acct, ts)
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return errInvalidToken
	}

	if nowFunc().UTC().Unix()-ts > int64(passwordResetTimeoutDelta.Seconds()) {
		return errTokenExpired
	}
	return nil
}
