package exporter

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/diewo77/bon-livraison/internal/models"
	"golang.org/x/crypto/blake2b"
)

// BackupVersion is the format version written in every backup.
const BackupVersion = "1.0"

var ErrChecksumMismatch = errors.New("checksum_mismatch")

// BackupData is the payload of a backup.
type BackupData struct {
	Invoices []models.Invoice    `json:"invoices"`
	Clients  []models.ClientInfo `json:"clients"`
}

// Backup is the envelope written by WriteBackup. Checksum is the hex
// BLAKE2b-256 of the compact JSON encoding of Data.
type Backup struct {
	Version   string     `json:"version"`
	Timestamp string     `json:"timestamp"`
	Checksum  string     `json:"checksum,omitempty"`
	Data      BackupData `json:"data"`
}

// NewBackup builds a backup of invoices and clients taken at now.
func NewBackup(invoices []models.Invoice, clients []models.ClientInfo, now time.Time) (Backup, error) {
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	if clients == nil {
		clients = []models.ClientInfo{}
	}
	b := Backup{
		Version:   BackupVersion,
		Timestamp: now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Data:      BackupData{Invoices: invoices, Clients: clients},
	}
	raw, err := json.Marshal(b.Data)
	if err != nil {
		return Backup{}, fmt.Errorf("encode backup data: %w", err)
	}
	b.Checksum = checksum(raw)
	return b, nil
}

// WriteBackup writes b as indented JSON.
func WriteBackup(w io.Writer, b Backup) error {
	return WriteJSON(w, b)
}

// ReadBackup decodes a backup and verifies its checksum. Backups without a
// checksum are accepted as they are.
func ReadBackup(r io.Reader) (Backup, error) {
	var env struct {
		Version   string          `json:"version"`
		Timestamp string          `json:"timestamp"`
		Checksum  string          `json:"checksum"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return Backup{}, fmt.Errorf("decode backup: %w", err)
	}
	b := Backup{Version: env.Version, Timestamp: env.Timestamp, Checksum: env.Checksum}
	if len(env.Data) == 0 {
		return b, nil
	}
	if env.Checksum != "" {
		var compact bytes.Buffer
		if err := json.Compact(&compact, env.Data); err != nil {
			return Backup{}, fmt.Errorf("compact backup data: %w", err)
		}
		if got := checksum(compact.Bytes()); got != env.Checksum {
			return Backup{}, fmt.Errorf("%w: got %s want %s", ErrChecksumMismatch, got, env.Checksum)
		}
	}
	if err := json.Unmarshal(env.Data, &b.Data); err != nil {
		return Backup{}, fmt.Errorf("decode backup data: %w", err)
	}
	return b, nil
}

func checksum(raw []byte) string {
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
