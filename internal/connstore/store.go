// Package connstore persists the single last-connected-device record. The
// record is written when a connection is established, read once at process
// startup, and erased on disconnect or failed restoration.
package connstore

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/courierhq/fieldlink/internal/device"
)

//go:embed schema.sql
var schema string

// Record is the serialized snapshot of the last successfully connected
// device, enough to rebuild a device.Device without re-running discovery.
type Record struct {
	ID        string
	Name      string
	Address   string
	Transport device.Transport
	Role      device.Role
}

// Device rebuilds the device the record was taken from. Connected is left
// false; only the lifecycle manager may mark it after verification.
func (r Record) Device() device.Device {
	return device.Device{
		ID:        r.ID,
		Name:      r.Name,
		Address:   r.Address,
		Transport: r.Transport,
		Role:      r.Role,
	}
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open connection store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise connection store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes r into the single slot, replacing any previous record.
func (s *Store) Save(r Record) error {
	_, err := s.db.Exec(`
		INSERT INTO connection_record (slot, device_id, name, address, transport, role)
		VALUES (0, ?, ?, ?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET
			device_id = excluded.device_id,
			name = excluded.name,
			address = excluded.address,
			transport = excluded.transport,
			role = excluded.role,
			saved_at = datetime('now')`,
		r.ID, r.Name, r.Address, r.Transport.String(), r.Role.String())
	if err != nil {
		return fmt.Errorf("save connection record: %w", err)
	}
	return nil
}

// Load returns the persisted record, or nil when the slot is empty.
func (s *Store) Load() (*Record, error) {
	row := s.db.QueryRow(`
		SELECT device_id, name, address, transport, role
		FROM connection_record
		WHERE slot = 0`)

	var r Record
	var transportName, roleName string
	if err := row.Scan(&r.ID, &r.Name, &r.Address, &transportName, &roleName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read connection record: %w", err)
	}

	var ok bool
	if r.Transport, ok = device.ParseTransport(transportName); !ok {
		return nil, fmt.Errorf("read connection record: unknown transport %q", transportName)
	}
	if r.Role, ok = device.ParseRole(roleName); !ok {
		return nil, fmt.Errorf("read connection record: unknown role %q", roleName)
	}
	return &r, nil
}

// Clear erases the slot. Clearing an already-empty slot is not an error.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM connection_record WHERE slot = 0`); err != nil {
		return fmt.Errorf("clear connection record: %w", err)
	}
	return nil
}
