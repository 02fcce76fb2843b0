package handler

import (
	"net/http"
	"strconv"

	"github.com/aetherlens/backend/internal/logger"
	"github.com/aetherlens/backend/internal/model"
	"github.com/aetherlens/backend/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DeviceHandler struct {
	svc *service.DeviceService
}

func NewDeviceHandler(svc *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{svc: svc}
}

// ListDevices godoc
// @Summary List devices
// @Tags devices
// @Produce json
// @Security BearerAuth
// @Param type query string false "Device type"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(50)
// @Success 200 {object} model.DeviceListResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/devices [get]
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	pageSize, ok := queryInt(c, "page_size")
	if !ok {
		return
	}

	res, err := h.svc.ListDevices(c.Request.Context(), model.DeviceFilter{
		Type:     c.Query("type"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetDevice godoc
// @Summary Get device
// @Tags devices
// @Produce json
// @Security BearerAuth
// @Param device_id path string true "Device ID"
// @Success 200 {object} model.Device
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/devices/{device_id} [get]
func (h *DeviceHandler) GetDevice(c *gin.Context) {
	device, err := h.svc.GetDevice(c.Request.Context(), c.Param("device_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

// CreateDevice godoc
// @Summary Create device
// @Tags devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.DeviceCreateRequest true "Device"
// @Success 201 {object} model.Device
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /api/v1/devices [post]
func (h *DeviceHandler) CreateDevice(c *gin.Context) {
	var req model.DeviceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Detail: "Invalid request"})
		return
	}

	device, err := h.svc.CreateDevice(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("Device created", zap.String("device_id", device.DeviceID))
	c.JSON(http.StatusCreated, device)
}

// UpdateDevice godoc
// @Summary Update device
// @Description Only supplied fields are written.
// @Tags devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param device_id path string true "Device ID"
// @Param request body model.DevicePatch true "Fields to update"
// @Success 200 {object} model.Device
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/devices/{device_id} [put]
func (h *DeviceHandler) UpdateDevice(c *gin.Context) {
	var patch model.DevicePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Detail: "Invalid request"})
		return
	}

	device, err := h.svc.UpdateDevice(c.Request.Context(), c.Param("device_id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("Device updated", zap.String("device_id", device.DeviceID))
	c.JSON(http.StatusOK, device)
}

// DeleteDevice godoc
// @Summary Delete device
// @Tags devices
// @Security BearerAuth
// @Param device_id path string true "Device ID"
// @Success 204
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/devices/{device_id} [delete]
func (h *DeviceHandler) DeleteDevice(c *gin.Context) {
	id := c.Param("device_id")
	if err := h.svc.DeleteDevice(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("Device deleted", zap.String("device_id", id))
	c.Status(http.StatusNoContent)
}

// queryInt reads an optional integer query parameter; 0 means absent.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Detail: name + " must be a positive integer"})
		return 0, false
	}
	return n, true
}
