package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"bigrack/internal/config"
)

// ErrNotFound indicates the requested rack or device does not exist.
var ErrNotFound = errors.New("not found")

// Store manages inventory persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the inventory database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// AddRack inserts a new rack. Names are unique.
func (s *Store) AddRack(ctx context.Context, name, location string, units int) (*Rack, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("rack name is required")
	}
	if units <= 0 {
		units = 42
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(ctx,
		"INSERT INTO racks (name, location, units, created_at) VALUES (?, ?, ?, ?)",
		name, strings.TrimSpace(location), units, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert rack: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.rackByID(ctx, id)
}

// GetRack returns a rack by name.
func (s *Store) GetRack(ctx context.Context, name string) (*Rack, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT id, name, location, units, created_at FROM racks WHERE name = ?", strings.TrimSpace(name))
	return scanRack(row)
}

func (s *Store) rackByID(ctx context.Context, id int64) (*Rack, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT id, name, location, units, created_at FROM racks WHERE id = ?", id)
	return scanRack(row)
}

// ListRacks returns all racks ordered by name.
func (s *Store) ListRacks(ctx context.Context) ([]*Rack, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT id, name, location, units, created_at FROM racks ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list racks: %w", err)
	}
	defer rows.Close()

	var racks []*Rack
	for rows.Next() {
		rack, err := scanRack(rows)
		if err != nil {
			return nil, err
		}
		racks = append(racks, rack)
	}
	return racks, rows.Err()
}

// AddDevice mounts a device into a rack at the given unit position.
func (s *Store) AddDevice(ctx context.Context, rackName string, position int, kind, name string) (*Device, error) {
	kind = strings.TrimSpace(kind)
	name = strings.TrimSpace(name)
	if kind == "" || name == "" {
		return nil, errors.New("device kind and name are required")
	}
	rack, err := s.GetRack(ctx, rackName)
	if err != nil {
		return nil, err
	}
	if position < 1 || position > rack.Units {
		return nil, fmt.Errorf("position %d outside rack %q (1-%d)", position, rack.Name, rack.Units)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	deviceUUID := uuid.NewString()

	res, err := s.execWithRetry(ctx,
		`INSERT INTO devices (uuid, rack_id, position, kind, name, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		deviceUUID, rack.ID, position, kind, name, StatusActive, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert device: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.deviceByID(ctx, id)
}

const deviceColumns = `d.id, d.uuid, r.name, d.position, d.kind, d.name, d.status, d.created_at, d.updated_at
         FROM devices d JOIN racks r ON r.id = d.rack_id`

func (s *Store) deviceByID(ctx context.Context, id int64) (*Device, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+deviceColumns+" WHERE d.id = ?", id)
	return scanDevice(row)
}

// GetDevice returns a device by its UUID.
func (s *Store) GetDevice(ctx context.Context, deviceUUID string) (*Device, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+deviceColumns+" WHERE d.uuid = ?", strings.TrimSpace(deviceUUID))
	return scanDevice(row)
}

// ListDevices returns devices, optionally restricted to a rack, ordered by
// rack then unit position.
func (s *Store) ListDevices(ctx context.Context, rackName string) ([]*Device, error) {
	query := "SELECT " + deviceColumns
	args := []any{}
	if strings.TrimSpace(rackName) != "" {
		query += " WHERE r.name = ?"
		args = append(args, strings.TrimSpace(rackName))
	}
	query += " ORDER BY r.name, d.position"

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

// SetDeviceStatus transitions a device to the given status.
func (s *Store) SetDeviceStatus(ctx context.Context, deviceUUID string, status DeviceStatus) (*Device, error) {
	if !ValidStatus(string(status)) {
		return nil, fmt.Errorf("unknown device status %q", status)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		"UPDATE devices SET status = ?, updated_at = ? WHERE uuid = ?",
		status, now, strings.TrimSpace(deviceUUID),
	)
	if err != nil {
		return nil, fmt.Errorf("update device status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("device %q: %w", deviceUUID, ErrNotFound)
	}
	return s.GetDevice(ctx, deviceUUID)
}

// Counts returns aggregate inventory totals.
func (s *Store) Counts(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	summary := Summary{ByStatus: make(map[DeviceStatus]int)}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM racks").Scan(&summary.Racks); err != nil {
		return Summary{}, fmt.Errorf("count racks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM devices GROUP BY status")
	if err != nil {
		return Summary{}, fmt.Errorf("count devices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, fmt.Errorf("scan device count: %w", err)
		}
		summary.ByStatus[DeviceStatus(status)] = count
		summary.Devices += count
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRack(row rowScanner) (*Rack, error) {
	var rack Rack
	var createdAt string
	err := row.Scan(&rack.ID, &rack.Name, &rack.Location, &rack.Units, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rack: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan rack: %w", err)
	}
	rack.CreatedAt = parseTimestamp(createdAt)
	return &rack, nil
}

func scanDevice(row rowScanner) (*Device, error) {
	var device Device
	var status, createdAt, updatedAt string
	err := row.Scan(&device.ID, &device.UUID, &device.RackName, &device.Position,
		&device.Kind, &device.Name, &status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("device: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan device: %w", err)
	}
	device.Status = DeviceStatus(status)
	device.CreatedAt = parseTimestamp(createdAt)
	device.UpdatedAt = parseTimestamp(updatedAt)
	return &device, nil
}

func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
