package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines device persistence. The SQLite implementation is the
// production store; tests substitute mocks.
type Repository interface {
	// GetByIEEE retrieves a device by its IEEE address.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByIEEE(ctx context.Context, ieeeAddress string) (*Device, error)

	// List retrieves all devices.
	List(ctx context.Context) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if the IEEE address is already stored.
	Create(ctx context.Context, d *Device) error

	// Update rewrites an existing device record.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, d *Device) error

	// Delete removes a device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, ieeeAddress string) error

	// UpdateNetworkAddress rewrites only the network address. Optimised
	// for rejoin announcements, which are frequent relative to full
	// record changes.
	UpdateNetworkAddress(ctx context.Context, ieeeAddress string, networkAddress uint16) error

	// UpdateInterviewState rewrites only the interview state.
	UpdateInterviewState(ctx context.Context, ieeeAddress string, state InterviewState) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed repository over an open
// connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `ieee_address, network_address, device_type, manufacturer_id,
		model_id, interview_state, endpoints, created_at, updated_at`

// GetByIEEE retrieves a device by its IEEE address.
func (r *SQLiteRepository) GetByIEEE(ctx context.Context, ieeeAddress string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE ieee_address = ?`

	row := r.db.QueryRowContext(ctx, query, ieeeAddress)
	d, err := scanDeviceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by ieee address: %w", err)
	}
	return d, nil
}

// List retrieves all devices ordered by IEEE address.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY ieee_address`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	if err := ValidateDevice(d); err != nil {
		return err
	}

	endpointsJSON, err := marshalEndpoints(d.Endpoints)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	query := `
		INSERT INTO devices (` + deviceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		d.IEEEAddress,
		int64(d.NetworkAddress),
		string(d.Type),
		nullableUint16(d.ManufacturerID),
		nullableString(d.ModelID),
		string(d.InterviewState),
		endpointsJSON,
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	return nil
}

// Update rewrites an existing device record.
func (r *SQLiteRepository) Update(ctx context.Context, d *Device) error {
	if err := ValidateDevice(d); err != nil {
		return err
	}

	endpointsJSON, err := marshalEndpoints(d.Endpoints)
	if err != nil {
		return err
	}

	d.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE devices SET
			network_address = ?, device_type = ?, manufacturer_id = ?,
			model_id = ?, interview_state = ?, endpoints = ?, updated_at = ?
		WHERE ieee_address = ?`

	result, err := r.db.ExecContext(ctx, query,
		int64(d.NetworkAddress),
		string(d.Type),
		nullableUint16(d.ManufacturerID),
		nullableString(d.ModelID),
		string(d.InterviewState),
		endpointsJSON,
		d.UpdatedAt.Format(time.RFC3339),
		d.IEEEAddress,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}

	return requireRowAffected(result, ErrDeviceNotFound)
}

// Delete removes a device.
func (r *SQLiteRepository) Delete(ctx context.Context, ieeeAddress string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM devices WHERE ieee_address = ?", ieeeAddress)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireRowAffected(result, ErrDeviceNotFound)
}

// UpdateNetworkAddress rewrites only the network address.
func (r *SQLiteRepository) UpdateNetworkAddress(ctx context.Context, ieeeAddress string, networkAddress uint16) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET network_address = ?, updated_at = ?
		WHERE ieee_address = ?`,
		int64(networkAddress),
		now.Format(time.RFC3339),
		ieeeAddress,
	)
	if err != nil {
		return fmt.Errorf("updating network address: %w", err)
	}
	return requireRowAffected(result, ErrDeviceNotFound)
}

// UpdateInterviewState rewrites only the interview state.
func (r *SQLiteRepository) UpdateInterviewState(ctx context.Context, ieeeAddress string, state InterviewState) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET interview_state = ?, updated_at = ?
		WHERE ieee_address = ?`,
		string(state),
		now.Format(time.RFC3339),
		ieeeAddress,
	)
	if err != nil {
		return fmt.Errorf("updating interview state: %w", err)
	}
	return requireRowAffected(result, ErrDeviceNotFound)
}

// rowScanner is implemented by both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeviceRow(scanner rowScanner) (*Device, error) {
	var d Device
	var networkAddress int64
	var deviceType, interviewState string
	var manufacturerID sql.NullInt64
	var modelID sql.NullString
	var endpointsJSON string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&d.IEEEAddress,
		&networkAddress,
		&deviceType,
		&manufacturerID,
		&modelID,
		&interviewState,
		&endpointsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.NetworkAddress = uint16(networkAddress)
	d.Type = Type(deviceType)
	d.InterviewState = InterviewState(interviewState)

	if manufacturerID.Valid {
		v := uint16(manufacturerID.Int64)
		d.ManufacturerID = &v
	}
	if modelID.Valid {
		d.ModelID = &modelID.String
	}

	if err := json.Unmarshal([]byte(endpointsJSON), &d.Endpoints); err != nil {
		return nil, fmt.Errorf("unmarshalling endpoints: %w", err)
	}

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &d, nil
}

func marshalEndpoints(endpoints []Endpoint) (string, error) {
	if endpoints == nil {
		endpoints = []Endpoint{}
	}
	b, err := json.Marshal(endpoints)
	if err != nil {
		return "", fmt.Errorf("marshalling endpoints: %w", err)
	}
	return string(b), nil
}

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableUint16(v *uint16) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func requireRowAffected(result sql.Result, missing error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return missing
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
