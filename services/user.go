package services

import (
	"context"
	"errors"
	"strings"

	"aeternum/models"
	"aeternum/repository"
	"aeternum/role"
	"aeternum/util"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	Insert(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, f models.UserFilter) ([]models.User, error)
}

type UserService struct {
	repo UserRepository
	cost int
	now  clock
}

func NewUserService(repo UserRepository, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, cost: bcryptCost, now: utcNow}
}

type RegisterInput struct {
	Email    string                 `json:"email"`
	Password string                 `json:"password"`
	Name     string                 `json:"name"`
	Role     string                 `json:"role"`
	Phone    string                 `json:"phone"`
	Profile  map[string]interface{} `json:"profile"`
}

// bcrypt only hashes the first 72 bytes and refuses anything longer.
const maxPasswordBytes = 72

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

/*
* Generate a bcrypt hash of the password
 */
func (s *UserService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", validationError(util.PASSWORD_TOO_LONG)
	}
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

/*
* Validate email, password and name
* Role defaults to patient; hospital and admin accounts need an admin caller
* Reject an email that is already registered
* Hash the password and insert
 */
func (s *UserService) Register(ctx context.Context, actor *models.Actor, in RegisterInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if in.Password == "" {
		return nil, validationError(util.MISSING_REQUIRED_FIELDS)
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, validationError(util.PASSWORD_TOO_LONG)
	}
	if err := requireFields(&in.Email, &in.Name); err != nil {
		return nil, err
	}
	r := strings.TrimSpace(in.Role)
	if r == "" {
		r = role.Patient
	}
	if !role.Valid(r) {
		return nil, validationError(util.INVALID_ROLE)
	}
	if role.IsStaff(r) && !actor.Is(role.Admin) {
		return nil, unauthorizedError(util.UNAUTHORIZED)
	}

	_, err := s.repo.FindByEmail(ctx, in.Email)
	if err == nil {
		return nil, conflictError(util.EMAIL_ALREADY_IN_USE)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		log.Error().Err(err).Msg("Error while checking email")
		return nil, err
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		log.Error().Err(err).Msg("Error while hashing password")
		return nil, err
	}
	u := &models.User{
		Email:     in.Email,
		Password:  hash,
		Name:      in.Name,
		Role:      r,
		Phone:     strings.TrimSpace(in.Phone),
		Profile:   in.Profile,
		CreatedAt: s.now(),
	}
	err = s.repo.Insert(ctx, u)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, conflictError(util.EMAIL_ALREADY_IN_USE)
	}
	if err != nil {
		log.Error().Err(err).Msg("Error while inserting user")
		return nil, err
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, actor *models.Actor, roleFilter string) ([]models.User, error) {
	if !actor.Is(role.Admin) {
		return nil, unauthorizedError(util.UNAUTHORIZED)
	}
	users, err := s.repo.List(ctx, models.UserFilter{Role: roleFilter})
	if err != nil {
		log.Error().Err(err).Msg("Error while listing users")
		return nil, err
	}
	return users, nil
}

/*
* Find the user by email and compare the bcrypt hash
* Both failures give the same answer
 */
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, validationError(util.MISSING_REQUIRED_FIELDS)
	}
	u, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthorizedError(util.INVALID_CREDENTIALS)
	}
	if err != nil {
		log.Error().Err(err).Msg("Error while fetching user for login")
		return nil, err
	}
	if strings.TrimSpace(u.Password) == "" {
		return nil, unauthorizedError(util.INVALID_CREDENTIALS)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, unauthorizedError(util.INVALID_CREDENTIALS)
	}
	return u, nil
}

// Current re-reads the caller so a deleted account stops resolving.
func (s *UserService) Current(ctx context.Context, actor *models.Actor) (*models.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	u, err := s.repo.FindByID(ctx, actor.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthorizedError(util.UNAUTHORIZED)
	}
	if err != nil {
		log.Error().Err(err).Msg("Error while fetching current user")
		return nil, err
	}
	return u, nil
}

// EnsureAdmin creates an admin account unless the email is already taken.
// It reports whether a user was created.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	admin := &models.Actor{Role: role.Admin}
	_, err := s.Register(ctx, admin, RegisterInput{Email: email, Password: password, Name: name, Role: role.Admin})
	if KindOf(err) == Conflict {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
