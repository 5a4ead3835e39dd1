package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/haru-album/pocket-backend/internal/repository"
	"github.com/haru-album/pocket-backend/internal/service"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Auth   *AuthHandler
	User   *UserHandler
	Pocket *PocketHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Auth:   &AuthHandler{authService: services.Auth},
		User:   &UserHandler{userService: services.User},
		Pocket: &PocketHandler{pocketService: services.Pocket},
	}
}

func handleServiceError(c *gin.Context, err error) {
	switch err {
	case service.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case service.ErrUserNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case service.ErrUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case service.ErrForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case service.ErrConflict:
		c.JSON(http.StatusConflict, gin.H{"error": "Resource already exists"})
	case service.ErrInvalidToken:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
	case service.ErrMasterCannotLeave:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Master cannot leave while other members remain"})
	case service.ErrNotMember:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "User is not a member of this pocket"})
	case service.ErrMasterProtected:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Master membership cannot be removed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// ============================================
// Response Mappers
// ============================================

// UserResponse is the public view of a user
type UserResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Nickname     string    `json:"nickname"`
	ProfileImage *string   `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MemberResponse is a membership with its user attached
type MemberResponse struct {
	ID        string        `json:"id"`
	PocketID  string        `json:"pocketId"`
	UserID    string        `json:"userId"`
	Activated bool          `json:"activated"`
	CreatedAt time.Time     `json:"createdAt"`
	User      *UserResponse `json:"user,omitempty"`
}

// PocketResponse is the public view of a pocket
type PocketResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	ImageURL    *string          `json:"imageUrl,omitempty"`
	MasterID    string           `json:"masterId"`
	InviteLink  string           `json:"inviteLink,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Members     []MemberResponse `json:"members,omitempty"`
}

func toUserResponse(u *repository.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Nickname:     u.Nickname,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
	}
}

func toMemberResponse(m *repository.Membership) MemberResponse {
	resp := MemberResponse{
		ID:        m.ID,
		PocketID:  m.PocketID,
		UserID:    m.UserID,
		Activated: m.Activated,
		CreatedAt: m.CreatedAt,
	}
	if m.User != nil {
		user := toUserResponse(m.User)
		resp.User = &user
	}
	return resp
}

func toMemberResponseList(members []*repository.Membership) []MemberResponse {
	response := make([]MemberResponse, len(members))
	for i, m := range members {
		response[i] = toMemberResponse(m)
	}
	return response
}

func toPocketResponse(p *repository.Pocket, inviteLink string) PocketResponse {
	resp := PocketResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		MasterID:    p.MasterID,
		InviteLink:  inviteLink,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Members != nil {
		resp.Members = toMemberResponseList(p.Members)
	}
	return resp
}
