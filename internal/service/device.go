package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aetherlens/backend/internal/db"
	"github.com/aetherlens/backend/internal/model"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
	maxDeviceIDLen  = 100
	maxNameLen      = 255
	maxVendorLen    = 100
)

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type deviceRepo interface {
	ListDevices(ctx context.Context, filter model.DeviceFilter) ([]model.Device, int64, error)
	GetDevice(ctx context.Context, deviceID string) (*model.Device, error)
	CreateDevice(ctx context.Context, req model.DeviceCreateRequest) (*model.Device, error)
	UpdateDevice(ctx context.Context, deviceID string, patch model.DevicePatch) (*model.Device, error)
	DeleteDevice(ctx context.Context, deviceID string) (bool, error)
}

type DeviceService struct {
	repo deviceRepo
}

func NewDeviceService(repo deviceRepo) *DeviceService {
	return &DeviceService{repo: repo}
}

func (s *DeviceService) ListDevices(ctx context.Context, filter model.DeviceFilter) (*model.DeviceListResponse, error) {
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = defaultPageSize
	}
	if filter.Page < 1 || filter.PageSize < 1 || filter.PageSize > maxPageSize {
		return nil, fmt.Errorf("%w: page must be >= 1 and page_size between 1 and %d", ErrInvalidInput, maxPageSize)
	}

	devices, total, err := s.repo.ListDevices(ctx, filter)
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []model.Device{}
	}

	pageSize := int64(filter.PageSize)
	return &model.DeviceListResponse{
		Devices:  devices,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Pages:    (total + pageSize - 1) / pageSize,
	}, nil
}

func (s *DeviceService) GetDevice(ctx context.Context, deviceID string) (*model.Device, error) {
	device, err := s.repo.GetDevice(ctx, deviceID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, deviceNotFound(deviceID)
		}
		return nil, err
	}
	return device, nil
}

func (s *DeviceService) CreateDevice(ctx context.Context, req model.DeviceCreateRequest) (*model.Device, error) {
	if err := validateDeviceCreate(req); err != nil {
		return nil, err
	}
	if req.Capabilities == nil {
		req.Capabilities = []string{}
	}

	device, err := s.repo.CreateDevice(ctx, req)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: device '%s' already exists", ErrConflict, req.DeviceID)
		}
		return nil, err
	}
	return device, nil
}

func (s *DeviceService) UpdateDevice(ctx context.Context, deviceID string, patch model.DevicePatch) (*model.Device, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: No fields to update", ErrInvalidInput)
	}
	if err := validateDevicePatch(patch); err != nil {
		return nil, err
	}

	device, err := s.repo.UpdateDevice(ctx, deviceID, patch)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, deviceNotFound(deviceID)
		}
		return nil, err
	}
	return device, nil
}

func (s *DeviceService) DeleteDevice(ctx context.Context, deviceID string) error {
	deleted, err := s.repo.DeleteDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	if !deleted {
		return deviceNotFound(deviceID)
	}
	return nil
}

func validateDeviceCreate(req model.DeviceCreateRequest) error {
	n := utf8.RuneCountInString(req.DeviceID)
	if n < 1 || n > maxDeviceIDLen || !deviceIDPattern.MatchString(req.DeviceID) {
		return fmt.Errorf("%w: Device ID must contain only alphanumeric characters, hyphens, and underscores", ErrInvalidInput)
	}
	if err := validateName(req.Name); err != nil {
		return err
	}
	if err := validateType(req.Type); err != nil {
		return err
	}
	return validateVendor(req.Manufacturer, req.Model)
}

// validateDevicePatch applies the create-time rules to every supplied field.
func validateDevicePatch(patch model.DevicePatch) error {
	if patch.Name != nil {
		if err := validateName(*patch.Name); err != nil {
			return err
		}
	}
	if patch.Type != nil {
		if err := validateType(*patch.Type); err != nil {
			return err
		}
	}
	return validateVendor(patch.Manufacturer, patch.Model)
}

func validateName(name string) error {
	if n := utf8.RuneCountInString(name); n < 1 || n > maxNameLen {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidInput, maxNameLen)
	}
	return nil
}

func validateType(deviceType string) error {
	if strings.TrimSpace(deviceType) == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidInput)
	}
	return nil
}

func validateVendor(manufacturer, deviceModel *string) error {
	if manufacturer != nil && utf8.RuneCountInString(*manufacturer) > maxVendorLen {
		return fmt.Errorf("%w: manufacturer must be at most %d characters", ErrInvalidInput, maxVendorLen)
	}
	if deviceModel != nil && utf8.RuneCountInString(*deviceModel) > maxVendorLen {
		return fmt.Errorf("%w: model must be at most %d characters", ErrInvalidInput, maxVendorLen)
	}
	return nil
}

func deviceNotFound(deviceID string) error {
	return fmt.Errorf("%w: Device '%s' not found", ErrNotFound, deviceID)
}
