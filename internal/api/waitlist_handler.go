package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/suntvalg/suntvalg-server/internal/models"
	"github.com/suntvalg/suntvalg-server/internal/service"
)

// WaitlistService is what the waitlist endpoints need from the service layer.
type WaitlistService interface {
	Join(ctx context.Context, req service.JoinRequest) (*models.WaitlistEntry, bool, error)
	List(ctx context.Context) ([]models.WaitlistEntry, error)
}

type waitlistRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Language string  `json:"language" binding:"omitempty,max=5"`
	Source   *string `json:"source" binding:"omitempty,max=50"`
	Campaign *string `json:"campaign" binding:"omitempty,max=100"`
}

type WaitlistHandler struct {
	service WaitlistService
}

func NewWaitlistHandler(svc WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{service: svc}
}

// Join handles POST /api/waitlist.
func (h *WaitlistHandler) Join(c *gin.Context) {
	log := zerolog.Ctx(c.Request.Context())

	var req waitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs, ok := fieldErrors(err)
		if !ok {
			errs = []FieldError{{Field: "body", Message: "must be a JSON object"}}
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid email format",
			"errors":  errs,
		})
		return
	}

	entry, created, err := h.service.Join(c.Request.Context(), service.JoinRequest{
		Email:    req.Email,
		Language: req.Language,
		Source:   req.Source,
		Campaign: req.Campaign,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to add to waitlist")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to add to waitlist"})
		return
	}

	if !created {
		c.JSON(http.StatusOK, gin.H{
			"message":       "You're already on the list!",
			"alreadyExists": true,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Successfully added to waitlist!",
		"data":    entry,
	})
}

// List handles GET /api/waitlist.
func (h *WaitlistHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context())
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to fetch waitlist")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch waitlist"})
		return
	}
	if entries == nil {
		entries = []models.WaitlistEntry{}
	}
	c.JSON(http.StatusOK, entries)
}
