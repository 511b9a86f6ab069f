package service

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loans/library/internal/errs"
	"github.com/Astemirdum/library-loans/library/internal/model"
	"github.com/Astemirdum/library-loans/library/internal/policy"
	libraryRepo "github.com/Astemirdum/library-loans/library/internal/repository"
	"github.com/Astemirdum/library-loans/pkg/auth"
	"github.com/Astemirdum/library-loans/pkg/password"
)

// Register creates an ordinary user. A photo stored for a request that
// fails is removed again.
func (s *Service) Register(ctx context.Context, req model.RegisterRequest, photo *model.Upload) (model.User, error) {
	hash, err := hashPassword(req.Password)
	if err != nil {
		return model.User{}, err
	}
	ref, err := s.saveUpload(ctx, photo)
	if err != nil {
		return model.User{}, err
	}

	u, err := s.repo.CreateUser(ctx, model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		City:         req.City,
		Role:         auth.RoleUser,
		IsActive:     true,
		ProfilePhoto: ref,
	})
	if err != nil {
		s.dropUpload(ctx, ref)
		return model.User{}, errors.Wrap(err, "register")
	}
	s.log.Info("user registered", zap.Int("id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Authenticate does not tell an unknown user from an inactive one or a wrong password.
// Every attempt costs one bcrypt comparison.
func (s *Service) Authenticate(ctx context.Context, username, pass string) (model.LoginResponse, error) {
	if s.tokens == nil {
		return model.LoginResponse{}, errors.New("token issuer is not configured")
	}
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.LoginResponse{}, err
	}
	known := err == nil && u.IsActive
	hash := u.PasswordHash
	if !known {
		hash = dummyHash()
	}
	err = s.checkPassword(hash, pass)
	if !known || errors.Is(err, password.ErrMismatch) {
		return model.LoginResponse{}, errs.ErrInvalidCredentials
	}
	if err != nil {
		return model.LoginResponse{}, err
	}

	token, exp, err := s.tokens.GenerateToken(u.Principal())
	if err != nil {
		return model.LoginResponse{}, errors.Wrap(err, "generate token")
	}
	return model.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   exp,
	}, nil
}

func (s *Service) Profile(ctx context.Context, p auth.Principal) (model.UserView, error) {
	u, err := s.repo.GetUser(ctx, p.ID)
	if err != nil {
		return model.UserView{}, err
	}
	return policy.ProjectSelf(u), nil
}

func (s *Service) ListUsers(ctx context.Context, p auth.Principal) ([]model.UserView, error) {
	users, err := s.repo.ListActiveUsers(ctx)
	if err != nil {
		return nil, err
	}
	return policy.ProjectUsers(users, p.Role), nil
}

func (s *Service) FindUsers(ctx context.Context, p auth.Principal, name string) ([]model.UserView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Validation("user name parameter is required")
	}
	users, err := s.repo.FindActiveUsers(ctx, name)
	if err != nil {
		return nil, err
	}
	return policy.ProjectUsers(users, p.Role), nil
}

// UpdateUser applies the supplied fields. The active flag is left to
// DeactivateUser and ReactivateUser.
func (s *Service) UpdateUser(ctx context.Context, id int, patch model.UserPatch, photo *model.Upload) (model.User, error) {
	if patch.Password != nil {
		hash, err := hashPassword(*patch.Password)
		if err != nil {
			return model.User{}, err
		}
		patch.PasswordHash = &hash
	}
	ref, err := s.saveUpload(ctx, photo)
	if err != nil {
		return model.User{}, err
	}
	patch.ProfilePhoto = ref

	var before, after model.User
	err = s.repo.InTx(ctx, func(repo libraryRepo.Repository) error {
		if before, err = repo.LockUser(ctx, id, libraryRepo.ForUpdate); err != nil {
			return err
		}
		after, err = repo.UpdateUser(ctx, id, patch)
		return err
	})
	if err != nil {
		s.dropUpload(ctx, ref)
		return model.User{}, errors.Wrap(err, "update user")
	}
	if ref != nil {
		s.dropUpload(ctx, before.ProfilePhoto)
	}
	return after, nil
}

// DeactivateUser refuses while the user still holds a book.
func (s *Service) DeactivateUser(ctx context.Context, id int) error {
	return s.repo.InTx(ctx, func(repo libraryRepo.Repository) error {
		if _, err := repo.LockUser(ctx, id, libraryRepo.ForUpdate); err != nil {
			return err
		}
		open, err := repo.CountOpenLoansByUser(ctx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return errs.ErrUserHasOpenLoan
		}
		return repo.SetUserActive(ctx, id, false)
	})
}

func (s *Service) ReactivateUser(ctx context.Context, id int) error {
	return s.repo.InTx(ctx, func(repo libraryRepo.Repository) error {
		u, err := repo.LockUser(ctx, id, libraryRepo.ForUpdate)
		if err != nil {
			return err
		}
		if u.IsActive {
			return errs.ErrAlreadyActive
		}
		return repo.SetUserActive(ctx, id, true)
	})
}

// EnsureAdmin creates the bootstrap admin unless a user with that name exists.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, pass string) error {
	existing, err := s.repo.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role != auth.RoleAdmin {
			s.log.Warn("bootstrap admin name is taken by a non-admin user", zap.String("username", username))
		}
		return nil
	case !errors.Is(err, errs.ErrNotFound):
		return err
	}

	hash, err := hashPassword(pass)
	if err != nil {
		return err
	}
	u, err := s.repo.CreateUser(ctx, model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		IsActive:     true,
	})
	if err != nil {
		return errors.Wrap(err, "create admin")
	}
	s.log.Info("admin created", zap.Int("id", u.ID), zap.String("username", u.Username))
	return nil
}

// dummyHash stands in for the stored hash of a missing or inactive user.
var dummyHash = sync.OnceValue(func() string {
	hash, err := password.GetHash("library-loans:no-such-user")
	if err != nil {
		panic(err)
	}
	return hash
})

func hashPassword(pass string) (string, error) {
	hash, err := password.GetHash(pass)
	if errors.Is(err, password.ErrTooLong) {
		return "", errs.Validation(password.ErrTooLong.Error())
	}
	return hash, err
}
