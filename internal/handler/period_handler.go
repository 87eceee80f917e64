package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"cycletracker/internal/service"
)

// PeriodHandler serves the caller's periods.
type PeriodHandler struct {
	svc service.PeriodService
}

// NewPeriodHandler creates a period handler.
func NewPeriodHandler(svc service.PeriodService) *PeriodHandler {
	return &PeriodHandler{svc: svc}
}

// Create godoc
// @Summary Record a period
// @Tags periods
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.PeriodInput true "Period with optional symptoms"
// @Success 201 {object} model.Period
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /periods [post]
func (h *PeriodHandler) Create(c echo.Context) error {
	var req service.PeriodInput
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	if err := c.Validate(&req); err != nil {
		return validationFailed(err)
	}

	period, err := h.svc.Create(c.Request().Context(), CurrentUser(c).ID, req)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusCreated, period)
}

// List godoc
// @Summary List periods
// @Description Newest first.
// @Tags periods
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" minimum(1)
// @Param limit query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} repository.Page[model.Period]
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /periods [get]
func (h *PeriodHandler) List(c echo.Context) error {
	p, err := bindPage(c)
	if err != nil {
		return err
	}

	page, err := h.svc.ListForUser(c.Request().Context(), CurrentUser(c).ID, p)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Recent godoc
// @Summary Most recent period
// @Description Returns null when no period has been recorded.
// @Tags periods
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Period
// @Failure 401 {object} errors.ErrorResponse
// @Router /periods/recent [get]
func (h *PeriodHandler) Recent(c echo.Context) error {
	period, err := h.svc.Recent(c.Request().Context(), CurrentUser(c).ID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, period)
}

// IntensityCounts godoc
// @Summary Flow intensity per day
// @Description Days covered by periods started in the last 365 days, with
// @Description Light=0, Medium=1 and Heavy=2.
// @Tags periods
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.DateIntensityCount
// @Failure 401 {object} errors.ErrorResponse
// @Router /periods/intensity-counts [get]
func (h *PeriodHandler) IntensityCounts(c echo.Context) error {
	counts, err := h.svc.IntensityCounts(c.Request().Context(), CurrentUser(c).ID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, counts)
}

// Get godoc
// @Summary Get period by id
// @Tags periods
// @Produce json
// @Security BearerAuth
// @Param id path string true "Period ID"
// @Success 200 {object} model.Period
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /periods/{id} [get]
func (h *PeriodHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	period, err := h.svc.Get(c.Request().Context(), CurrentUser(c).ID, id)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, period)
}

// Update godoc
// @Summary Update period
// @Description Absent fields are kept and null clears them. A symptoms list
// @Description replaces all existing symptoms.
// @Tags periods
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Period ID"
// @Param request body service.PeriodPatch true "Fields to change"
// @Success 200 {object} model.Period
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /periods/{id} [patch]
func (h *PeriodHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var patch service.PeriodPatch
	if err := c.Bind(&patch); err != nil {
		return invalidBody()
	}

	period, err := h.svc.Update(c.Request().Context(), CurrentUser(c).ID, id, patch)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, period)
}

// Delete godoc
// @Summary Delete period
// @Tags periods
// @Security BearerAuth
// @Param id path string true "Period ID"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /periods/{id} [delete]
func (h *PeriodHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.Request().Context(), CurrentUser(c).ID, id); err != nil {
		return RespondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
