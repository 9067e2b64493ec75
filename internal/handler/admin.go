package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/afec/formation-portal/internal/model"
	"github.com/afec/formation-portal/internal/repository"
)

// AdminHandler serves the user validation screen: listing pending accounts,
// approving or rejecting them, and deleting users.
type AdminHandler struct {
	Users *repository.UserRepo
}

func NewAdminHandler(users *repository.UserRepo) *AdminHandler {
	return &AdminHandler{Users: users}
}

// ListUsers returns every non-admin user with agency and role info.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	users, err := h.Users.ListNonAdmin(ctx)
	if err != nil {
		return internalError(c, "list users failed")
	}
	if users == nil {
		users = []model.UserSummary{}
	}
	return c.JSON(http.StatusOK, users)
}

type validateReq struct {
	Status model.UserStatus `json:"status"`
}

// ValidateUser moves a pending account to approved or rejected. Any other
// target, or a transition the status table forbids, is a 400.
func (h *AdminHandler) ValidateUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	var req validateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Status != model.StatusApproved && req.Status != model.StatusRejected {
		return badRequest(c, "status must be approved or rejected")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(c)
		}
		return internalError(c, "load user failed")
	}
	if !u.Status.CanTransition(req.Status) {
		return badRequest(c, "invalid status transition")
	}

	if err := h.Users.UpdateStatus(ctx, id, req.Status); err != nil {
		return internalError(c, "update status failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "status updated"})
}

// DeleteUser removes a user and its role assignments.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c)
		}
		return internalError(c, "delete user failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "user deleted"})
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "user not found"})
}
