package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/auth"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/domain"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/provider"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/retry"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/usage"
)

// Generator is a single provider call; the handler wraps it in the retry
// policy. *provider.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string, parameters map[string]interface{}) (*domain.GenerationResult, error)
}

// DesignOps is the service surface the handlers need.
type DesignOps interface {
	Save(ctx context.Context, userID, prompt, ephemeralURL string) (string, error)
	List(ctx context.Context, userID string) ([]domain.Design, error)
	Delete(ctx context.Context, userID, designID string) error
}

type Handler struct {
	generator Generator
	svc       DesignOps
	events    *usage.Repo
	policy    retry.Policy
	hasToken  bool
}

func NewHandler(generator Generator, svc DesignOps, events *usage.Repo, hasToken bool) *Handler {
	return &Handler{
		generator: generator,
		svc:       svc,
		events:    events,
		policy:    retry.DefaultPolicy(),
		hasToken:  hasToken,
	}
}

func (h *Handler) generate(c *gin.Context) {
	var req generateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "please provide a prompt"})
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		// Never reaches the provider.
		c.JSON(http.StatusBadRequest, gin.H{"error": "please provide a prompt"})
		return
	}

	// Credential check comes before any provider call.
	if !h.hasToken {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server configuration error: missing API token"})
		return
	}

	start := time.Now()
	attempts := 0
	result, err := h.policy.Execute(c.Request.Context(), func(ctx context.Context) (*domain.GenerationResult, error) {
		attempts++
		return h.generator.Generate(ctx, prompt, provider.DefaultParameters())
	})

	uid := auth.UserFirebaseUID(c)
	if err != nil {
		h.events.Record(c.Request.Context(), usage.Event{
			UserID:     uid,
			Prompt:     prompt,
			Status:     "failed",
			Fault:      err.Error(),
			Attempts:   attempts,
			DurationMS: time.Since(start).Milliseconds(),
		})
		status, msg := statusFor(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	h.events.Record(c.Request.Context(), usage.Event{
		UserID:     uid,
		Prompt:     prompt,
		Status:     "succeeded",
		Attempts:   attempts,
		DurationMS: time.Since(start).Milliseconds(),
	})
	c.JSON(http.StatusOK, generateResp{Prediction: result.ImageRefs})
}

func (h *Handler) save(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "please sign in to save designs"})
		return
	}

	var req saveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	id, err := h.svc.Save(c.Request.Context(), uid, req.Prompt, req.ImageURL)
	if err != nil {
		status, msg := statusFor(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": id})
}

func (h *Handler) list(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "please sign in to view designs"})
		return
	}

	designs, err := h.svc.List(c.Request.Context(), uid)
	if err != nil {
		status, msg := statusFor(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "designs": designs})
}

func (h *Handler) delete(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "please sign in to delete designs"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		status, msg := statusFor(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// statusFor maps a pipeline fault to an HTTP status and a user-facing
// message. Connection timeouts are checked before the broader timeout
// class they belong to.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInputInvalid):
		return http.StatusBadRequest, "please provide a prompt"
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusInternalServerError, "server configuration error: missing API token"
	case errors.Is(err, domain.ErrConnectTimeout):
		return http.StatusRequestTimeout, "connection timed out, please retry"
	case errors.Is(err, domain.ErrProviderTimeout):
		return http.StatusGatewayTimeout, "generation timed out, please retry"
	case errors.Is(err, domain.ErrProviderValidation):
		return http.StatusUnprocessableEntity, "parameter validation failed, please try again later"
	case errors.Is(err, domain.ErrStorageUnauthorized):
		return http.StatusUnauthorized, "please sign in to save designs"
	case errors.Is(err, domain.ErrSizeExceeded):
		return http.StatusRequestEntityTooLarge, "image exceeds the 5MB limit"
	case errors.Is(err, domain.ErrTypeInvalid):
		return http.StatusUnsupportedMediaType, "file must be an image"
	case errors.Is(err, domain.ErrFetch):
		return http.StatusBadGateway, "failed to fetch the generated image, please retry"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "design not found"
	case errors.Is(err, domain.ErrRecordWrite):
		return http.StatusInternalServerError, "failed to save design, please retry"
	default:
		return http.StatusInternalServerError, "something went wrong, please try again later"
	}
}
