package receipts

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"lukechampine.com/blake3"

	"github.com/alpha-fi/cheddar-maze-minter/native/minter"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Receipt is the audit record of one committed issuance request.
type Receipt struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID      string    `gorm:"uniqueIndex;not null" json:"request_id"`
	Recipient      string    `gorm:"index;not null" json:"recipient"`
	Referral       string    `gorm:"index" json:"referral,omitempty"`
	Requested      string    `gorm:"not null" json:"requested"`
	UserMinted     string    `gorm:"not null" json:"user_minted"`
	ReferralMinted string    `gorm:"not null" json:"referral_minted"`
	Day            uint64    `gorm:"index" json:"day"`
	DailyUse       string    `json:"daily_use"`
	Truncated      bool      `json:"truncated"`
	Digest         string    `gorm:"size:64;not null" json:"digest"`
	CreatedAt      time.Time `json:"created_at"`
}

// ComputeDigest hashes the economic fields with blake3 so tampered rows are
// detectable.
func (r *Receipt) ComputeDigest() string {
	h := blake3.New(32, nil)
	for _, field := range []string{
		r.RequestID,
		r.Recipient,
		r.Referral,
		r.Requested,
		r.UserMinted,
		r.ReferralMinted,
		strconv.FormatUint(r.Day, 10),
		r.DailyUse,
		strconv.FormatBool(r.Truncated),
	} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether the stored digest matches the row.
func (r *Receipt) Verify() bool {
	return r.Digest != "" && r.Digest == r.ComputeDigest()
}

// Store persists receipts through gorm.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to driver/dsn and migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite:
		if path := sqlitePath(dsn); path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("receipts: create dir: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("receipts: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("receipts: open %s: %w", driver, err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("receipts: nil database")
	}
	if err := db.AutoMigrate(&Receipt{}); err != nil {
		return nil, fmt.Errorf("receipts: migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func sqlitePath(dsn string) string {
	trimmed := strings.TrimPrefix(dsn, "file:")
	if trimmed == "" || strings.HasPrefix(trimmed, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	if idx := strings.IndexByte(trimmed, '?'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}

// Record stores the receipt of a committed mint.
func (s *Store) Record(ctx context.Context, requestID string, res *minter.MintResult) (*Receipt, error) {
	if res == nil {
		return nil, errors.New("receipts: nil result")
	}
	receipt := &Receipt{
		ID:             uuid.New(),
		RequestID:      requestID,
		Recipient:      res.Recipient,
		Referral:       res.Referral,
		Requested:      minter.FormatAmount(res.Requested),
		UserMinted:     minter.FormatAmount(res.UserMinted),
		ReferralMinted: minter.FormatAmount(res.ReferralMinted),
		Day:            res.Day,
		DailyUse:       minter.FormatAmount(res.DailyUse),
		Truncated:      res.Truncated(),
		CreatedAt:      s.now().UTC(),
	}
	receipt.Digest = receipt.ComputeDigest()
	if err := s.db.WithContext(ctx).Create(receipt).Error; err != nil {
		return nil, fmt.Errorf("receipts: insert: %w", err)
	}
	return receipt, nil
}

// List returns the newest receipts, optionally limited to those where account was
// the recipient or the referrer.
func (s *Store) List(ctx context.Context, account string, limit int) ([]Receipt, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	query := s.db.WithContext(ctx).Model(&Receipt{})
	if account = strings.TrimSpace(account); account != "" {
		query = query.Where("recipient = ? OR referral = ?", account, account)
	}
	var out []Receipt
	if err := query.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("receipts: list: %w", err)
	}
	return out, nil
}

// Get looks up a receipt by request id.
func (s *Store) Get(ctx context.Context, requestID string) (*Receipt, error) {
	var out Receipt
	err := s.db.WithContext(ctx).Where("request_id = ?", requestID).First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
