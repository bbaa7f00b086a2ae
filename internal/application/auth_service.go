package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
	"github.com/oksasatya/go-task-tracker/internal/domain/repository"
	"github.com/oksasatya/go-task-tracker/pkg/attachment"
	"github.com/oksasatya/go-task-tracker/pkg/helpers"
	"github.com/oksasatya/go-task-tracker/pkg/validation"
)

var errGoogleNotConfigured = fmt.Errorf("%w: google sign-in is not configured", apperror.ErrDependencyUnavailable)

type AuthService struct {
	users    repository.UserRepository
	jwt      *helpers.JWTManager
	files    AttachmentStore
	verifier AssertionVerifier
	logger   logrus.FieldLogger
}

// NewAuthService wires the session issuer. verifier may be nil, in which case
// ExternalSignIn reports DependencyUnavailable.
func NewAuthService(users repository.UserRepository, jwt *helpers.JWTManager, files AttachmentStore, verifier AssertionVerifier, logger logrus.FieldLogger) *AuthService {
	return &AuthService{users: users, jwt: jwt, files: files, verifier: verifier, logger: logger}
}

// Session is an issued access token plus the user it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *entity.User
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Avatar   *attachment.Upload
}

type registerRules struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,pwd,bcryptlen"`
	Name     string `json:"name" validate:"notblank,max=100"`
}

type ProfileInput struct {
	Name   *string
	Avatar *attachment.Upload
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = entity.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if fields := validation.Struct(registerRules{Email: in.Email, Password: in.Password, Name: in.Name}); fields != nil {
		return nil, apperror.NewValidation(fields)
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperror.ErrDuplicateIdentity
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Unavailable("lookup user", err)
	}

	hash, err := helpers.HashPassword(in.Password)
	if errors.Is(err, helpers.ErrPasswordTooLong) {
		return nil, apperror.Field("password", fmt.Sprintf("must be at most %d bytes long", validation.MaxPasswordBytes))
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &entity.User{Email: in.Email, PasswordHash: hash, Name: in.Name}
	if in.Avatar != nil {
		ref, err := s.files.Save(ctx, attachment.BucketAvatar, *in.Avatar)
		if err != nil {
			return nil, err
		}
		u.AvatarURL = ref
	}

	if err := s.users.Create(ctx, u); err != nil {
		s.discard(ctx, u.AvatarURL)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.ErrDuplicateIdentity
		}
		return nil, apperror.Unavailable("create user", err)
	}
	s.logger.WithField("user_id", u.ID).Info("user registered")
	return s.issue(u)
}

// Login checks email and password. Unknown emails, wrong passwords and
// password-less accounts are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, entity.NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperror.Unavailable("lookup user", err)
	}
	if !u.HasPassword() || !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, apperror.ErrInvalidCredentials
	}
	return s.issue(u)
}

// ExternalSignIn verifies a Google ID token and signs the owner in, creating
// a password-less account on first sight of the email.
func (s *AuthService) ExternalSignIn(ctx context.Context, assertion string) (*Session, error) {
	if s.verifier == nil {
		return nil, errGoogleNotConfigured
	}
	if strings.TrimSpace(assertion) == "" {
		return nil, apperror.ErrInvalidAssertion
	}
	ident, err := s.verifier.Verify(ctx, assertion)
	if err != nil {
		s.logger.WithError(err).Debug("identity assertion rejected")
		return nil, apperror.ErrInvalidAssertion
	}
	email := entity.NormalizeEmail(ident.Email)
	if email == "" || ident.Subject == "" {
		return nil, apperror.ErrInvalidAssertion
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		u, err = s.createExternal(ctx, email, ident)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, apperror.Unavailable("lookup user", err)
	case u.GoogleID == "":
		u.GoogleID = ident.Subject
		if u.AvatarURL == "" {
			u.AvatarURL = ident.Picture
		}
		if err := s.users.Update(ctx, u); err != nil {
			return nil, apperror.Unavailable("link google account", err)
		}
	case u.GoogleID != ident.Subject:
		return nil, apperror.ErrInvalidAssertion
	}
	return s.issue(u)
}

func (s *AuthService) createExternal(ctx context.Context, email string, ident *ExternalIdentity) (*entity.User, error) {
	name := strings.TrimSpace(ident.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	u := &entity.User{Email: email, Name: name, AvatarURL: ident.Picture, GoogleID: ident.Subject}
	err := s.users.Create(ctx, u)
	if errors.Is(err, repository.ErrDuplicate) {
		// lost a race with a concurrent first sign-in
		existing, gerr := s.users.GetByEmail(ctx, email)
		if gerr != nil || existing.GoogleID != ident.Subject {
			return nil, apperror.ErrInvalidAssertion
		}
		return existing, nil
	}
	if err != nil {
		return nil, apperror.Unavailable("create user", err)
	}
	s.logger.WithField("user_id", u.ID).Info("user created from google sign-in")
	return u, nil
}

// Authenticate validates an access token and returns the user id it carries.
func (s *AuthService) Authenticate(token string) (string, error) {
	claims, err := s.jwt.ParseAccessToken(token)
	if err != nil {
		return "", apperror.ErrInvalidToken
	}
	return claims.UserID, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, repoError("get user", err)
	}
	return u, nil
}

// UpdateProfile changes only the supplied fields. A replaced avatar file is
// removed once the new one is recorded.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*entity.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, repoError("get user", err)
	}
	if in.Name == nil && in.Avatar == nil {
		return u, nil
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if fields := validation.Struct(struct {
			Name string `json:"name" validate:"notblank,max=100"`
		}{name}); fields != nil {
			return nil, apperror.NewValidation(fields)
		}
		u.Name = name
	}

	var previous string
	if in.Avatar != nil {
		ref, err := s.files.Save(ctx, attachment.BucketAvatar, *in.Avatar)
		if err != nil {
			return nil, err
		}
		previous, u.AvatarURL = u.AvatarURL, ref
	}

	if err := s.users.Update(ctx, u); err != nil {
		if in.Avatar != nil {
			s.discard(ctx, u.AvatarURL)
		}
		return nil, repoError("update user", err)
	}
	if in.Avatar != nil {
		s.discard(ctx, previous)
	}
	return u, nil
}

func (s *AuthService) issue(u *entity.User) (*Session, error) {
	token, exp, err := s.jwt.GenerateAccessToken(u.ID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// discard removes a stored attachment, logging instead of failing.
func (s *AuthService) discard(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.files.Remove(context.WithoutCancel(ctx), ref); err != nil {
		s.logger.WithError(err).WithField("ref", ref).Warn("remove attachment failed")
	}
}

// repoError maps repository failures onto the shared error kinds.
func repoError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.ErrNotFound
	}
	return apperror.Unavailable(op, err)
}
