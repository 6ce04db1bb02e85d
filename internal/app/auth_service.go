// Package app holds the application services and business logic.
package app

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image/png"
	"strings"
	"time"

	"bpmnstudio/internal/domain"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionTTL is how long a login stays valid.
const DefaultSessionTTL = 24 * time.Hour

// AuthService handles authentication, sessions and account settings.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	log      zerolog.Logger

	sessionTTL time.Duration
	issuer     string
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		log:        log.With().Str("component", "auth").Logger(),
		sessionTTL: DefaultSessionTTL,
		issuer:     "BPMN Studio",
		now:        time.Now,
	}
}

// WithSessionTTL overrides the session lifetime.
func (s *AuthService) WithSessionTTL(ttl time.Duration) *AuthService {
	if ttl > 0 {
		s.sessionTTL = ttl
	}
	return s
}

// WithTOTPIssuer sets the issuer shown in authenticator apps.
func (s *AuthService) WithTOTPIssuer(issuer string) *AuthService {
	if issuer != "" {
		s.issuer = issuer
	}
	return s
}

// Login checks the password and, when enabled, the TOTP code, then opens a session.
func (s *AuthService) Login(ctx context.Context, username, password, code string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if user == nil {
		recordAuthAttempt("login", false)
		return "", domain.ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		recordAuthAttempt("login", false)
		s.log.Info().Str("event", "login").Int64("user_id", user.ID).Bool("success", false).Msg("password mismatch")
		return "", domain.ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		if code == "" {
			recordAuthAttempt("login", false)
			return "", domain.ErrMissingOTP
		}
		if !s.validCode(code, user.TwoFactorSecret) {
			recordAuthAttempt("login", false)
			s.log.Info().Str("event", "login").Int64("user_id", user.ID).Bool("success", false).Msg("invalid two-factor code")
			return "", domain.ErrInvalidOTP
		}
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return "", err
	}
	recordAuthAttempt("login", true)
	s.log.Info().Str("event", "login").Int64("user_id", user.ID).Bool("success", true).Msg("session opened")
	return token, nil
}

// LoginWithUser creates a session for an already authenticated user (e.g. via SSO).
// Unknown users are provisioned without a usable password.
func (s *AuthService) LoginWithUser(ctx context.Context, username string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("sso login: %w", err)
	}
	if user == nil {
		user, err = s.users.Create(ctx, username, "")
		if err != nil {
			// lost a race against a concurrent first login
			user, err = s.users.GetByUsername(ctx, username)
			if err != nil || user == nil {
				return "", fmt.Errorf("sso login: provision %q: %w", username, err)
			}
		}
		s.log.Info().Str("event", "sso_provision").Int64("user_id", user.ID).Msg("user provisioned")
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return "", err
	}
	recordAuthAttempt("sso", true)
	return token, nil
}

func (s *AuthService) openSession(ctx context.Context, userID int64) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := s.sessions.Create(ctx, userID, token, s.now().Add(s.sessionTTL)); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// Logout invalidates a session. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a bearer token to its user id.
func (s *AuthService) Authenticate(ctx context.Context, token string) (int64, error) {
	return s.check(ctx, "authenticate", token)
}

// VerifyToken reports whether token belongs to a live session.
func (s *AuthService) VerifyToken(ctx context.Context, token string) error {
	_, err := s.check(ctx, "verify_token", token)
	return err
}

func (s *AuthService) check(ctx context.Context, event, token string) (int64, error) {
	var userID int64
	ok := false
	defer func() {
		recordAuthAttempt(event, ok)
		s.log.Info().
			Str("event", event).
			Str("token_prefix", tokenPrefix(token)).
			Int64("user_id", userID).
			Bool("success", ok).
			Msg("token check")
	}()

	if token == "" {
		return 0, domain.ErrUnauthenticated
	}
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", event, err)
	}
	if session == nil || session.Expired(s.now()) {
		return 0, domain.ErrUnauthenticated
	}
	userID = session.UserID
	ok = true
	return userID, nil
}

// AccountInfo returns the caller's account.
func (s *AuthService) AccountInfo(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("account info: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// TwoFactorEnrollment carries what an authenticator app needs to enroll.
type TwoFactorEnrollment struct {
	Secret    string `json:"secret"`
	URL       string `json:"otpauthUrl"`
	QRCodeURL string `json:"qrCodeUrl"`
}

// TwoFactorSetup generates and stores a new TOTP secret without enabling it.
func (s *AuthService) TwoFactorSetup(ctx context.Context, userID int64) (*TwoFactorEnrollment, error) {
	user, err := s.AccountInfo(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, domain.ErrTwoFactorAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: user.Username,
	})
	if err != nil {
		return nil, fmt.Errorf("2fa setup: generate key: %w", err)
	}
	img, err := key.Image(200, 200)
	if err != nil {
		return nil, fmt.Errorf("2fa setup: qr image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("2fa setup: encode qr: %w", err)
	}

	user.TwoFactorSecret = key.Secret()
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("2fa setup: %w", err)
	}
	return &TwoFactorEnrollment{
		Secret:    key.Secret(),
		URL:       key.URL(),
		QRCodeURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// AccountUpdate is a partial change to the caller's account. Nil fields are left alone.
type AccountUpdate struct {
	CurrentPassword string
	Username        *string
	Password        *string
	Enable2FA       *bool
	OTPVerify       string
}

// UpdateAccount applies u after re-checking the current password.
func (s *AuthService) UpdateAccount(ctx context.Context, userID int64, u AccountUpdate) error {
	if u.CurrentPassword == "" {
		return &domain.ValidationError{Fields: []string{"current_password"}}
	}
	user, err := s.AccountInfo(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(u.CurrentPassword)); err != nil {
		s.log.Warn().Str("event", "update_account").Int64("user_id", userID).Msg("current password mismatch")
		return domain.ErrInvalidCredentials
	}

	if u.Username != nil {
		if name := strings.TrimSpace(*u.Username); name != "" && name != user.Username {
			other, err := s.users.GetByUsername(ctx, name)
			if err != nil {
				return fmt.Errorf("update account: %w", err)
			}
			if other != nil && other.ID != user.ID {
				return domain.ErrUsernameTaken
			}
			user.Username = name
		}
	}

	if u.Password != nil && *u.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("update account: hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if u.Enable2FA != nil {
		switch {
		case *u.Enable2FA && !user.TwoFactorEnabled:
			if u.OTPVerify == "" {
				return domain.ErrMissingOTP
			}
			if user.TwoFactorSecret == "" {
				return domain.ErrTwoFactorNotSetup
			}
			if !s.validCode(u.OTPVerify, user.TwoFactorSecret) {
				return domain.ErrInvalidOTP
			}
			user.TwoFactorEnabled = true
		case !*u.Enable2FA && user.TwoFactorEnabled:
			user.TwoFactorEnabled = false
		}
	}

	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	s.log.Info().Str("event", "update_account").Int64("user_id", userID).Bool("two_fa_enabled", user.TwoFactorEnabled).Msg("account updated")
	return nil
}

// Bootstrap creates the default account when the user table is empty.
func (s *AuthService) Bootstrap(ctx context.Context, username, password string) error {
	count, err := s.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if _, err := s.users.Create(ctx, username, string(hash)); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	s.log.Info().Str("username", username).Msg("created default account")
	return nil
}

func (s *AuthService) validCode(code, secret string) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, s.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func tokenPrefix(token string) string {
	if len(token) > 10 {
		return token[:10]
	}
	return token
}
