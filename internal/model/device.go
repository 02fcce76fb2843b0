package model

import "time"

type Device struct {
	DeviceID      string         `json:"device_id"`
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	Manufacturer  *string        `json:"manufacturer"`
	Model         *string        `json:"model"`
	Location      map[string]any `json:"location"`
	Capabilities  []string       `json:"capabilities"`
	Configuration map[string]any `json:"configuration"`
	Metadata      map[string]any `json:"metadata"`
	Status        map[string]any `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type DeviceCreateRequest struct {
	DeviceID      string         `json:"device_id"`
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	Manufacturer  *string        `json:"manufacturer"`
	Model         *string        `json:"model"`
	Location      map[string]any `json:"location"`
	Capabilities  []string       `json:"capabilities"`
	Configuration map[string]any `json:"configuration"`
}

// DevicePatch lists only the fields a caller supplied. Nil means "leave unchanged".
type DevicePatch struct {
	Name          *string         `json:"name"`
	Type          *string         `json:"type"`
	Manufacturer  *string         `json:"manufacturer"`
	Model         *string         `json:"model"`
	Location      *map[string]any `json:"location"`
	Configuration *map[string]any `json:"configuration"`
	Capabilities  *[]string       `json:"capabilities"`
}

// Empty reports whether no field was supplied.
func (p DevicePatch) Empty() bool {
	return p.Name == nil && p.Type == nil && p.Manufacturer == nil && p.Model == nil &&
		p.Location == nil && p.Configuration == nil && p.Capabilities == nil
}

type DeviceFilter struct {
	Type     string
	Page     int
	PageSize int
}

type DeviceListResponse struct {
	Devices  []Device `json:"devices"`
	Total    int64    `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Pages    int64    `json:"pages"`
}
