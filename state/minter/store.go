package minter

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/alpha-fi/cheddar-maze-minter/native/minter"
	"github.com/alpha-fi/cheddar-maze-minter/storage"
)

// KV is the raw key-value surface the store persists through. storage.Database
// and storage.Journal both satisfy it.
type KV interface {
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
}

type configRecord struct {
	Ledger     string
	Admin      string
	Minter     string
	Active     bool
	DailyQuota *big.Int
	UserQuota  *big.Int
}

type windowRecord struct {
	LastMintDay uint64
	DailyMints  *big.Int
}

type accountRecord struct {
	Day    uint64
	Minted *big.Int
}

// Store persists the gateway configuration, the global day window and the
// per-account records as rlp-encoded values.
type Store struct {
	kv KV
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) withKV() (KV, error) {
	if s == nil || s.kv == nil {
		return nil, fmt.Errorf("minter store not initialised")
	}
	return s.kv, nil
}

func (s *Store) get(key []byte, out interface{}) (bool, error) {
	kv, err := s.withKV()
	if err != nil {
		return false, err
	}
	raw, err := kv.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) put(key []byte, value interface{}) error {
	kv, err := s.withKV()
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Put(key, encoded)
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (s *Store) MinterConfigGet() (*minter.Config, bool, error) {
	var stored configRecord
	ok, err := s.get(configKey(), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &minter.Config{
		Ledger:     stored.Ledger,
		Admin:      stored.Admin,
		Minter:     stored.Minter,
		Active:     stored.Active,
		DailyQuota: nonNil(stored.DailyQuota),
		UserQuota:  nonNil(stored.UserQuota),
	}, true, nil
}

func (s *Store) MinterConfigPut(cfg *minter.Config) error {
	if cfg == nil {
		return fmt.Errorf("minter: config required")
	}
	record := configRecord{
		Ledger:     cfg.Ledger,
		Admin:      cfg.Admin,
		Minter:     cfg.Minter,
		Active:     cfg.Active,
		DailyQuota: nonNil(cfg.DailyQuota),
		UserQuota:  nonNil(cfg.UserQuota),
	}
	return s.put(configKey(), record)
}

func (s *Store) MinterWindowGet() (*minter.DayWindow, bool, error) {
	var stored windowRecord
	ok, err := s.get(windowKey(), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &minter.DayWindow{LastMintDay: stored.LastMintDay, DailyMints: nonNil(stored.DailyMints)}, true, nil
}

func (s *Store) MinterWindowPut(window *minter.DayWindow) error {
	if window == nil {
		return fmt.Errorf("minter: day window required")
	}
	return s.put(windowKey(), windowRecord{LastMintDay: window.LastMintDay, DailyMints: nonNil(window.DailyMints)})
}

func (s *Store) MinterAccountGet(account string) (*minter.AccountMintRecord, bool, error) {
	trimmed := strings.TrimSpace(account)
	if trimmed == "" {
		return nil, false, fmt.Errorf("minter: account required")
	}
	var stored accountRecord
	ok, err := s.get(accountKey(trimmed), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &minter.AccountMintRecord{Day: stored.Day, Minted: nonNil(stored.Minted)}, true, nil
}

func (s *Store) MinterAccountPut(account string, record *minter.AccountMintRecord) error {
	trimmed := strings.TrimSpace(account)
	if trimmed == "" {
		return fmt.Errorf("minter: account required")
	}
	if record == nil {
		return fmt.Errorf("minter: account record required")
	}
	return s.put(accountKey(trimmed), accountRecord{Day: record.Day, Minted: nonNil(record.Minted)})
}
