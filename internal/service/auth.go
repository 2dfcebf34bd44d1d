package service

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.uber.org/zap"

	"github.com/iliyamo/book-network/internal/model"
	"github.com/iliyamo/book-network/internal/repository"
)

// RegisterInput is the sign-up form.
type RegisterInput struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 72)),
	)
}

// LoginInput is the authentication form.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required),
	)
}

// AuthResult is returned by a successful authentication.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration, login and account activation.
type AuthService struct {
	tx            repository.TxManager
	hasher        PasswordHasher
	tokens        *AccessTokenService
	activation    *ActivationManager
	notifier      Notifier
	activationURL string
	log           *zap.Logger
}

// NewAuthService wires the orchestrator. activationURL is included in
// activation mails so the user can open the confirmation page.
func NewAuthService(tx repository.TxManager, hasher PasswordHasher, tokens *AccessTokenService,
	activation *ActivationManager, notifier Notifier, activationURL string, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		tx:            tx,
		hasher:        hasher,
		tokens:        tokens,
		activation:    activation,
		notifier:      notifier,
		activationURL: activationURL,
		log:           log,
	}
}

// Register creates a disabled account holding the default role and an
// activation code, then mails the code. A failed hand-off to the mail
// queue is logged and does not fail registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validationFailed(in.Validate()); err != nil {
		return nil, err
	}

	role, err := s.tx.Repos().Roles().FindByName(ctx, model.DefaultRole)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Error("default role missing", zap.String("role", model.DefaultRole))
		return nil, ErrDefaultRoleMissing
	}
	if err != nil {
		return nil, internal("load default role", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, internal("hash password", err)
	}

	var (
		user *model.User
		code string
	)
	err = s.tx.WithinTx(ctx, func(r repository.Repos) error {
		u := &model.User{
			Email:         in.Email,
			PasswordHash:  hash,
			FirstName:     in.FirstName,
			LastName:      in.LastName,
			AccountLocked: false,
			Enabled:       false,
		}
		if err := r.Users().Create(ctx, u); err != nil {
			if errors.Is(err, repository.ErrEmailExists) {
				return ErrEmailTaken
			}
			return internal("create user", err)
		}
		if err := r.Users().AssignRoles(ctx, u.ID, role.ID); err != nil {
			return internal("assign role", err)
		}
		u.Roles = []string{role.Name}

		c, err := s.activation.Issue(ctx, r, u)
		if err != nil {
			return err
		}
		user, code = u, c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.Uint64("user_id", user.ID))
	s.sendActivation(ctx, user, code)
	return user, nil
}

// Authenticate verifies the password before looking at the account
// flags, so a locked or disabled state is only revealed to a caller who
// knows the password.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (AuthResult, error) {
	in := LoginInput{Email: strings.ToLower(strings.TrimSpace(email)), Password: password}
	if err := validationFailed(in.Validate()); err != nil {
		return AuthResult{}, err
	}

	u, err := s.tx.Repos().Users().FindByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, internal("load user", err)
	}
	if !s.hasher.Verify(u.PasswordHash, in.Password) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if u.AccountLocked {
		return AuthResult{}, ErrAccountLocked
	}
	if !u.Enabled {
		return AuthResult{}, ErrAccountDisabled
	}

	tok, err := s.tokens.Issue(u)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: tok.Token, ExpiresAt: tok.ExpiresAt}, nil
}

// Activate consumes code and enables its owner. When the code had
// expired a new one is mailed and the returned error matches
// ErrExpiredToken.
func (s *AuthService) Activate(ctx context.Context, code string) error {
	_, err := s.activation.Consume(ctx, code, func(r repository.Repos, u *model.User) error {
		u.Enabled = true
		if err := r.Users().Update(ctx, u); err != nil {
			return internal("enable user", err)
		}
		return nil
	})
	var expired *ExpiredActivationError
	if errors.As(err, &expired) {
		s.log.Info("activation code expired, new code issued", zap.Uint64("user_id", expired.User.ID))
		s.sendActivation(ctx, expired.User, expired.Code)
	}
	return err
}

// ResolveIdentity turns a bearer token into the caller's identity. The
// user is reloaded by subject, so a token outlives neither the account
// nor its enabled, unlocked state.
func (s *AuthService) ResolveIdentity(ctx context.Context, token string) (Identity, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return Identity{}, err
	}
	u, err := s.tx.Repos().Users().FindByEmail(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return Identity{}, ErrInvalidToken
	}
	if err != nil {
		return Identity{}, internal("load user", err)
	}
	if u.AccountLocked {
		return Identity{}, ErrAccountLocked
	}
	if !u.Enabled {
		return Identity{}, ErrAccountDisabled
	}
	return NewIdentity(u), nil
}

func (s *AuthService) sendActivation(ctx context.Context, u *model.User, code string) {
	if s.notifier == nil {
		return
	}
	n := Notification{
		Email:    u.Email,
		FullName: u.FullName(),
		Template: TemplateActivateAccount,
		Subject:  "Account activation",
		Params: map[string]string{
			"activation_code":  code,
			"confirmation_url": s.activationURL,
		},
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn("activation mail not queued", zap.Uint64("user_id", u.ID), zap.Error(err))
	}
}
