package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/service"
	"github.com/gin-gonic/gin"
)

type UserService interface {
	Create(ctx context.Context, req user.Request) (user.Response, error)
	Update(ctx context.Context, id int64, req user.Request) (user.Response, error)
	Patch(ctx context.Context, id int64, p user.PatchRequest) (user.Response, error)
	GetByID(ctx context.Context, id int64) (user.Response, error)
	GetAll(ctx context.Context) ([]user.Response, error)
	Delete(ctx context.Context, id int64) error
}

type UsersHandler struct {
	users UserService
}

func NewUsersHandler(users UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req user.Request

	if !BindJSON(ctx, &req) {
		return
	}

	created, err := h.users.Create(ctx.Request.Context(), req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.Header("Location", "/users/"+strconv.FormatInt(created.ID, 10))
	ctx.JSON(http.StatusCreated, created)
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	users, err := h.users.GetAll(ctx.Request.Context())
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items": users,
		"count": len(users),
	})
}

func (h *UsersHandler) GetUserByID(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	u, err := h.users.GetByID(ctx.Request.Context(), id)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, u)
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	var req user.Request
	if !BindJSON(ctx, &req) {
		return
	}

	updated, err := h.users.Update(ctx.Request.Context(), id, req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *UsersHandler) PatchUser(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	var req user.PatchRequest
	if !BindJSON(ctx, &req) {
		return
	}

	patched, err := h.users.Patch(ctx.Request.Context(), id, req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, patched)
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	if err := h.users.Delete(ctx.Request.Context(), id); err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func pathID(ctx *gin.Context) (int64, bool) {
	id, err := service.ParseID(ctx.Param("id"))
	if err != nil {
		RespondBadRequest(ctx, "Invalid user id", gin.H{"id": ctx.Param("id")})
		return 0, false
	}

	return id, true
}

func respondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, user.ErrInvalidInput):
		RespondBadRequest(ctx, err.Error(), nil)
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "email_taken", "Email is already registered")
	default:
		slog.ErrorContext(ctx.Request.Context(), "user request failed",
			"path", ctx.FullPath(),
			"err", err,
		)
		RespondInternal(ctx, "Something went wrong")
	}
}
