package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"github.com/jhoicas/portfolio-status-api/internal/application/collection"
	"github.com/jhoicas/portfolio-status-api/internal/application/dto"
	"github.com/jhoicas/portfolio-status-api/internal/domain"
	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
	"github.com/jhoicas/portfolio-status-api/pkg/jwt"
	"github.com/jhoicas/portfolio-status-api/pkg/logger"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de autenticación y usuarios. Los usuarios viven en la colección "users".
type AuthUseCase struct {
	runner *collection.Runner
	jwtCfg JWTConfig
	log    *logger.Logger
	cost   int
	now    func() time.Time
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(runner *collection.Runner, jwtCfg JWTConfig, log *logger.Logger) *AuthUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthUseCase{runner: runner, jwtCfg: jwtCfg, log: log.Component("auth"), cost: bcrypt.DefaultCost, now: time.Now}
}

// Login verifica username/password, genera JWT y retorna token + usuario.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	users, err := uc.users(ctx)
	if err != nil {
		return nil, err
	}
	user := findByUsername(users, in.Username)
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if !user.IsActive {
		return nil, domain.ErrForbidden
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.Username, user.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		User:  *toUserResponse(user),
	}, nil
}

// CreateUser hashea el password con bcrypt y persiste. ErrDuplicate si el username ya existe.
func (uc *AuthUseCase) CreateUser(ctx context.Context, in dto.CreateUserRequest) (*dto.UserResponse, error) {
	if !entity.ValidRole(in.Role) {
		return nil, fmt.Errorf("%w: rol %q inválido", domain.ErrInvalidInput, in.Role)
	}
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username y password requeridos", domain.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.cost)
	if err != nil {
		return nil, err
	}
	now := uc.now().UTC()
	name := in.Name
	if name == "" {
		name = in.Username
	}
	user := entity.User{
		ID:           uuid.New().String(),
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: string(hash),
		Name:         name,
		Role:         in.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, _, err = uc.runner.Mutate(ctx, "create_user", []string{collection.Users}, func(set *collection.Set) error {
		users := collection.Get[entity.User](set, collection.Users)
		if findByUsername(users, user.Username) != nil {
			return fmt.Errorf("%w: usuario %q", domain.ErrDuplicate, user.Username)
		}
		return collection.Put(set, collection.Users, append(users, user))
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("user_id", user.ID).Str("username", user.Username).Str("role", user.Role).Msg("usuario creado")
	return toUserResponse(&user), nil
}

// ListUsers lista los usuarios sin sus hashes.
func (uc *AuthUseCase) ListUsers(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := uc.users(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *toUserResponse(&users[i]))
	}
	return out, nil
}

// EnsureAdmin crea el administrador inicial cuando no existe ningún usuario admin.
func (uc *AuthUseCase) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	users, err := uc.users(ctx)
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u.Role == entity.RoleAdmin {
			return false, nil
		}
	}
	_, err = uc.CreateUser(ctx, dto.CreateUserRequest{Username: username, Password: password, Name: "Administrador", Role: entity.RoleAdmin})
	if err != nil {
		return false, fmt.Errorf("crear admin inicial: %w", err)
	}
	return true, nil
}

func (uc *AuthUseCase) users(ctx context.Context) ([]entity.User, error) {
	set, err := uc.runner.Load(ctx, collection.Users)
	if err != nil {
		return nil, err
	}
	return collection.Get[entity.User](set, collection.Users), nil
}

func findByUsername(users []entity.User, username string) *entity.User {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(username))
	for i := range users {
		if fold.String(users[i].Username) == want {
			return &users[i]
		}
	}
	return nil
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
