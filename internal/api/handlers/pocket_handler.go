package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/haru-album/pocket-backend/internal/api/middleware"
	"github.com/haru-album/pocket-backend/internal/service"
)

// ============================================
// Pocket Handler
// ============================================

type PocketHandler struct {
	pocketService service.PocketService
}

// CreatePocketRequest represents the request body for creating a pocket
type CreatePocketRequest struct {
	Name           string   `json:"name" binding:"required,min=1,max=100"`
	Description    *string  `json:"description"`
	Image          *string  `json:"image"`
	InvitedUserIDs []string `json:"invitedUserIds"`
}

// UpdatePocketRequest represents the request body for updating a pocket
type UpdatePocketRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
}

// InviteUsersRequest represents the request body for inviting users
type InviteUsersRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
}

// TargetUserRequest carries a single target user id (ban, cancel, delegate)
type TargetUserRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// InviteLinkRequest represents the request body for joining via link
type InviteLinkRequest struct {
	InviteKey string `json:"inviteKey" binding:"required"`
}

func (h *PocketHandler) CreatePocket(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req CreatePocketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pocket, err := h.pocketService.Create(c.Request.Context(), userID, req.Name, req.Description, req.Image, req.InvitedUserIDs)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toPocketResponse(pocket, h.pocketService.InviteLink(pocket)))
}

func (h *PocketHandler) GetPocket(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	pocket, err := h.pocketService.GetByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPocketResponse(pocket, h.pocketService.InviteLink(pocket)))
}

func (h *PocketHandler) ListPockets(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	pockets, err := h.pocketService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response := make([]PocketResponse, len(pockets))
	for i, p := range pockets {
		response[i] = toPocketResponse(p, "")
	}

	c.JSON(http.StatusOK, response)
}

func (h *PocketHandler) UpdatePocket(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req UpdatePocketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pocket, err := h.pocketService.Update(c.Request.Context(), userID, c.Param("id"), req.Name, req.Description, req.Image)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPocketResponse(pocket, h.pocketService.InviteLink(pocket)))
}

// ============================================
// Invitations
// ============================================

func (h *PocketHandler) InviteUsers(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req InviteUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.pocketService.InviteUsers(c.Request.Context(), userID, c.Param("id"), req.UserIDs); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitations sent"})
}

// JoinViaLink resolves an invite key and creates a pending membership for the caller
func (h *PocketHandler) JoinViaLink(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req InviteLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pocket, err := h.pocketService.InviteViaLink(c.Request.Context(), userID, req.InviteKey)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPocketResponse(pocket, ""))
}

// ResolveInviteKey previews the pocket behind an invite key without joining
func (h *PocketHandler) ResolveInviteKey(c *gin.Context) {
	pocket, err := h.pocketService.ResolveInviteKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":   pocket.ID,
		"name": pocket.Name,
	})
}

func (h *PocketHandler) AcceptInvitation(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.pocketService.AcceptInvitation(c.Request.Context(), userID, c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitation accepted"})
}

func (h *PocketHandler) CancelInvitation(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req TargetUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.pocketService.CancelInvitation(c.Request.Context(), userID, c.Param("id"), req.UserID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitation cancelled"})
}

// ============================================
// Membership
// ============================================

func (h *PocketHandler) BanUser(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req TargetUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.pocketService.BanUser(c.Request.Context(), userID, c.Param("id"), req.UserID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User banned"})
}

func (h *PocketHandler) LeavePocket(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.pocketService.Leave(c.Request.Context(), userID, c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left pocket"})
}

func (h *PocketHandler) DelegateMaster(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req TargetUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.pocketService.DelegateMaster(c.Request.Context(), userID, c.Param("id"), req.UserID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Master delegated"})
}

func (h *PocketHandler) ListMembers(c *gin.Context) {
	if _, ok := middleware.RequireUserID(c); !ok {
		return
	}

	members, err := h.pocketService.ListJoinedUsers(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMemberResponseList(members))
}

func (h *PocketHandler) ListPendingInvitees(c *gin.Context) {
	if _, ok := middleware.RequireUserID(c); !ok {
		return
	}

	invitees, err := h.pocketService.ListPendingInvitees(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMemberResponseList(invitees))
}
