package service

import (
	"context"
	"errors"

	"marginalia/internal/cache"
	"marginalia/internal/models"
	"marginalia/internal/repository"
	"marginalia/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService handles account registration, credential checks and profile
// updates. Token issuance lives in the HTTP layer.
type UserService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	store      cache.Store
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type UpdateProfileInput struct {
	UserID    uint
	Name      *string
	Bio       *string
	AvatarURL *string
}

// Profile is a user's public view with follower counts.
type Profile struct {
	User      *models.User `json:"user"`
	Followers int64        `json:"followers"`
	Following int64        `json:"following"`
}

// NewUserService creates a new UserService. A nil store disables the
// profile cache.
func NewUserService(userRepo repository.UserRepository, followRepo repository.FollowRepository, store cache.Store) *UserService {
	if store == nil {
		store = cache.Noop()
	}
	return &UserService{userRepo: userRepo, followRepo: followRepo, store: store}
}

// Register creates an account with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validation.ValidateName(in.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("Email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{Name: in.Name, Email: in.Email, Password: string(hash)}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies credentials and returns the account. Bad email
// and bad password collapse into one error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthenticatedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthenticatedError("Invalid credentials")
	}
	return user, nil
}

// GetProfile returns the user with follower graph counts, cached briefly.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*Profile, error) {
	var profile Profile
	err := cache.Aside(ctx, s.store, cache.UserKey(userID), &profile, cache.UserTTL, func() (interface{}, error) {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.NewNotFoundError("User", userID)
			}
			return nil, err
		}
		followers, err := s.followRepo.CountFollowers(ctx, userID)
		if err != nil {
			return nil, err
		}
		following, err := s.followRepo.CountFollowing(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &Profile{User: user, Followers: followers, Following: following}, nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile changes the caller's own display fields.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", in.UserID)
		}
		return nil, err
	}

	if in.Name != nil {
		if err := validation.ValidateName(*in.Name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Name = *in.Name
	}
	if in.Bio != nil {
		if len(*in.Bio) > 500 {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = *in.Bio
	}
	if in.AvatarURL != nil {
		user.AvatarURL = *in.AvatarURL
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.store.Invalidate(ctx, cache.UserKey(in.UserID))
	return user, nil
}
