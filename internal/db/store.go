// Package db persists the workspace in a key/value table through gorm,
// on sqlite by default or postgres.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/bon-livraison/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Keys of the persisted records.
const (
	KeyInvoice  = "invoice"
	KeyCompany  = "companyInfo"
	KeyClients  = "clients"
	KeyInvoices = "invoices"
)

var (
	ErrNotFound        = errors.New("record_not_found")
	ErrVersionConflict = errors.New("version_conflict")
)

// Record is one JSON document of the workspace.
type Record struct {
	Key       string `gorm:"column:record_key;primaryKey;size:64"`
	Value     string `gorm:"type:text;not null"`
	Version   int    `gorm:"not null;default:1"`
	UpdatedAt time.Time
}

func (Record) TableName() string { return "records" }

// Store reads and writes workspace records.
type Store struct {
	db  *gorm.DB
	log *logrus.Logger
	now func() time.Time
}

func NewStore(d *gorm.DB, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{db: d, log: log, now: time.Now}
}

func (s *Store) with(tx *gorm.DB) *Store {
	return &Store{db: tx, log: s.log, now: s.now}
}

// Get decodes the record stored under key into dst and returns its version.
func (s *Store) Get(ctx context.Context, key string, dst any) (int, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("record_key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(rec.Value), dst); err != nil {
		return 0, fmt.Errorf("decode %s: %w", key, err)
	}
	return rec.Version, nil
}

// Put stores v under key unconditionally, bumping the record version.
func (s *Store) Put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec Record
		err := tx.Where("record_key = ?", key).First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = Record{Key: key, Value: string(raw), Version: 1, UpdatedAt: s.now()}
			return tx.Create(&rec).Error
		case err != nil:
			return fmt.Errorf("put %s: %w", key, err)
		}
		return tx.Model(&Record{}).Where("record_key = ?", key).Updates(map[string]any{
			"value":      string(raw),
			"version":    rec.Version + 1,
			"updated_at": s.now(),
		}).Error
	})
}

// LoadInvoice returns the invoice being edited.
func (s *Store) LoadInvoice(ctx context.Context) (models.Invoice, error) {
	var inv models.Invoice
	_, err := s.Get(ctx, KeyInvoice, &inv)
	return inv, err
}

// SaveInvoice writes inv only if the stored invoice is still at
// expectedVersion (0 when nothing is stored yet). The record version becomes
// inv.Version. A mismatch returns ErrVersionConflict and leaves the store
// untouched.
func (s *Store) SaveInvoice(ctx context.Context, inv models.Invoice, expectedVersion int) error {
	raw, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode invoice: %w", err)
	}
	d := s.db.WithContext(ctx)

	if expectedVersion == 0 {
		var count int64
		if err := d.Model(&Record{}).Where("record_key = ?", KeyInvoice).Count(&count).Error; err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}
		if count > 0 {
			return s.conflict(inv, expectedVersion)
		}
		rec := Record{Key: KeyInvoice, Value: string(raw), Version: inv.Version, UpdatedAt: s.now()}
		if err := d.Create(&rec).Error; err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}
		return nil
	}

	res := d.Model(&Record{}).
		Where("record_key = ? AND version = ?", KeyInvoice, expectedVersion).
		Updates(map[string]any{
			"value":      string(raw),
			"version":    inv.Version,
			"updated_at": s.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("save invoice: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.conflict(inv, expectedVersion)
	}
	return nil
}

func (s *Store) conflict(inv models.Invoice, expected int) error {
	s.log.WithFields(logrus.Fields{
		"invoice":  inv.ID,
		"expected": expected,
		"version":  inv.Version,
	}).Warn("invoice changed since it was loaded")
	return fmt.Errorf("%w: expected version %d", ErrVersionConflict, expected)
}

// LoadWorkspace reads every record. Missing records yield zero values, so a
// fresh database loads as an empty workspace.
func (s *Store) LoadWorkspace(ctx context.Context) (models.Workspace, error) {
	ws := models.Workspace{Clients: []models.ClientInfo{}, Invoices: []models.Invoice{}}
	targets := []struct {
		key string
		dst any
	}{
		{KeyInvoice, &ws.Invoice},
		{KeyCompany, &ws.Company},
		{KeyClients, &ws.Clients},
		{KeyInvoices, &ws.Invoices},
	}
	for _, t := range targets {
		if _, err := s.Get(ctx, t.key, t.dst); err != nil && !errors.Is(err, ErrNotFound) {
			return models.Workspace{}, err
		}
	}
	return ws, nil
}

// SaveWorkspace writes the whole workspace in one transaction. The invoice
// goes through the SaveInvoice version check against expectedVersion.
func (s *Store) SaveWorkspace(ctx context.Context, ws models.Workspace, expectedVersion int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st := s.with(tx)
		if err := st.SaveInvoice(ctx, ws.Invoice, expectedVersion); err != nil {
			return err
		}
		if err := st.Put(ctx, KeyCompany, ws.Company); err != nil {
			return err
		}
		clients := ws.Clients
		if clients == nil {
			clients = []models.ClientInfo{}
		}
		if err := st.Put(ctx, KeyClients, clients); err != nil {
			return err
		}
		invoices := ws.Invoices
		if invoices == nil {
			invoices = []models.Invoice{}
		}
		return st.Put(ctx, KeyInvoices, invoices)
	})
}
