package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/aetherlens/backend/internal/model"
)

const deviceColumns = `device_id, name, type, manufacturer, model, location,
	capabilities, configuration, metadata, status, created_at, updated_at`

func (db *Postgres) ListDevices(ctx context.Context, filter model.DeviceFilter) ([]model.Device, int64, error) {
	offset := (filter.Page - 1) * filter.PageSize

	var total int64
	countQuery := `SELECT COUNT(*) FROM devices WHERE ($1 = '' OR type = $1)`
	if err := db.Pool.QueryRow(ctx, countQuery, filter.Type).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count devices: %w", err)
	}

	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE ($1 = '' OR type = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := db.Pool.Query(ctx, query, filter.Type, filter.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := []model.Device{}
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return devices, total, nil
}

func (db *Postgres) GetDevice(ctx context.Context, deviceID string) (*model.Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE device_id = $1
	`
	return scanDevice(db.Pool.QueryRow(ctx, query, deviceID))
}

func (db *Postgres) CreateDevice(ctx context.Context, req model.DeviceCreateRequest) (*model.Device, error) {
	query := `
		INSERT INTO devices (
			device_id, name, type, manufacturer, model,
			location, capabilities, configuration, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + deviceColumns
	return scanDevice(db.Pool.QueryRow(ctx, query,
		req.DeviceID,
		req.Name,
		req.Type,
		req.Manufacturer,
		req.Model,
		req.Location,
		req.Capabilities,
		req.Configuration,
		map[string]any{"online": false},
	))
}

// UpdateDevice writes only the fields present in patch. Returns pgx.ErrNoRows when the
// device does not exist.
func (db *Postgres) UpdateDevice(ctx context.Context, deviceID string, patch model.DevicePatch) (*model.Device, error) {
	set, args := buildDevicePatch(patch)
	if len(args) == 0 {
		return nil, fmt.Errorf("empty device patch")
	}
	args = append(args, deviceID)

	query := `
		UPDATE devices
		SET ` + set + `, updated_at = NOW()
		WHERE device_id = $` + fmt.Sprint(len(args)) + `
		RETURNING ` + deviceColumns
	return scanDevice(db.Pool.QueryRow(ctx, query, args...))
}

func (db *Postgres) DeleteDevice(ctx context.Context, deviceID string) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM devices WHERE device_id = $1`, deviceID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// buildDevicePatch renders the SET list for the supplied fields. Column names come
// from this fixed list only; values are always bound parameters.
func buildDevicePatch(patch model.DevicePatch) (string, []any) {
	var (
		cols []string
		args []any
	)
	add := func(col string, value any) {
		args = append(args, value)
		cols = append(cols, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Type != nil {
		add("type", *patch.Type)
	}
	if patch.Manufacturer != nil {
		add("manufacturer", *patch.Manufacturer)
	}
	if patch.Model != nil {
		add("model", *patch.Model)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.Configuration != nil {
		add("configuration", *patch.Configuration)
	}
	if patch.Capabilities != nil {
		add("capabilities", *patch.Capabilities)
	}

	return strings.Join(cols, ", "), args
}

func scanDevice(row rowScanner) (*model.Device, error) {
	var device model.Device
	err := row.Scan(
		&device.DeviceID,
		&device.Name,
		&device.Type,
		&device.Manufacturer,
		&device.Model,
		&device.Location,
		&device.Capabilities,
		&device.Configuration,
		&device.Metadata,
		&device.Status,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &device, nil
}
