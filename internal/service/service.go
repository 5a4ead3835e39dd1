package service

import (
	"errors"

	"github.com/haru-album/pocket-backend/internal/config"
	"github.com/haru-album/pocket-backend/internal/db"
	"github.com/haru-album/pocket-backend/internal/repository"
	"github.com/haru-album/pocket-backend/internal/socket"
	"github.com/haru-album/pocket-backend/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("resource already exists")

	// Pocket lifecycle rule violations
	ErrMasterCannotLeave = errors.New("master cannot leave while other members remain")
	ErrNotMember         = errors.New("user is not a member of this pocket")
	ErrMasterProtected   = errors.New("master membership cannot be removed")
)

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth   AuthService
	User   UserService
	Pocket PocketService

	Broadcaster *socket.Broadcaster
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config      *config.Config
	Repos       *repository.Repositories
	Cache       *db.RedisDB
	Uploader    storage.Uploader
	Broadcaster *socket.Broadcaster
}

func NewServices(deps *ServiceDeps) *Services {
	var notifier Notifier
	if deps.Broadcaster != nil {
		notifier = deps.Broadcaster
	}

	return &Services{
		Auth: NewAuthService(deps.Config, deps.Repos.UserRepo),
		User: NewUserService(deps.Repos.UserRepo, deps.Uploader),
		Pocket: NewPocketService(
			deps.Repos.PocketRepo,
			deps.Repos.MembershipRepo,
			deps.Repos.UserRepo,
			deps.Cache,
			deps.Uploader,
			notifier,
			deps.Config.InviteLinkBase,
		),
		Broadcaster: deps.Broadcaster,
	}
}
