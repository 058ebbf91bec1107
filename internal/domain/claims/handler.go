package claims

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ginja/claims-api/internal/platform/auth"
	"github.com/ginja/claims-api/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "claims"))
	g.POST("/claims", h.SubmitClaim)
	g.GET("/claims", h.ListClaims)
	g.GET("/claims/:id", h.GetClaim)
}

// SubmitClaim adjudicates a claim synchronously. Business rejections come
// back as 201 with status REJECTED; only malformed input and infrastructure
// failures map to error responses.
func (h *Handler) SubmitClaim(c echo.Context) error {
	var in SubmitClaimInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	claim, err := h.svc.SubmitClaim(c.Request().Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrBalanceContention):
			return echo.NewHTTPError(http.StatusServiceUnavailable,
				"claim could not be processed due to concurrent activity, retry later")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, claim)
}

func (h *Handler) GetClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}
	claim, err := h.svc.GetClaim(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "claim not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, claim)
}

func (h *Handler) ListClaims(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := ListFilter{
		MemberID:   c.QueryParam("member_id"),
		ProviderID: c.QueryParam("provider_id"),
		Status:     Status(c.QueryParam("status")),
	}
	items, total, err := h.svc.ListClaims(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
