package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"multisender-core/internal/engine"
	"multisender-core/internal/model"
	"multisender-core/pkg/errno"
)

// AddressBookStore 地址簿存储。地址按小写形式唯一。
type AddressBookStore interface {
	Upsert(ctx context.Context, entry *model.AddressBookEntry) error
	List(ctx context.Context) ([]model.AddressBookEntry, error)
	Remove(ctx context.Context, address string) error
}

// AddressBookService manages saved recipient labels. Saving the same address
// twice, in any casing, updates the label instead of adding a second entry.
type AddressBookService struct {
	store AddressBookStore
}

func NewAddressBookService(store AddressBookStore) *AddressBookService {
	return &AddressBookService{store: store}
}

// Save validates the address and upserts its label.
func (s *AddressBookService) Save(ctx context.Context, address, label string) error {
	address = strings.TrimSpace(address)
	if !engine.IsHexAddress(address) {
		return errno.ErrInvalidAddress
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return errno.ErrMissingField
	}
	return s.store.Upsert(ctx, &model.AddressBookEntry{
		Address: strings.ToLower(address),
		Label:   label,
	})
}

func (s *AddressBookService) List(ctx context.Context) ([]model.AddressBookEntry, error) {
	return s.store.List(ctx)
}

func (s *AddressBookService) Remove(ctx context.Context, address string) error {
	if !engine.IsHexAddress(address) {
		return errno.ErrInvalidAddress
	}
	return s.store.Remove(ctx, strings.ToLower(strings.TrimSpace(address)))
}

// GormAddressBookStore persists the address book via GORM.
type GormAddressBookStore struct {
	db *gorm.DB
}

func NewGormAddressBookStore(db *gorm.DB) *GormAddressBookStore {
	return &GormAddressBookStore{db: db}
}

func (s *GormAddressBookStore) Upsert(ctx context.Context, entry *model.AddressBookEntry) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "updated_at"}),
	}).Create(entry).Error
}

func (s *GormAddressBookStore) List(ctx context.Context) ([]model.AddressBookEntry, error) {
	var entries []model.AddressBookEntry
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&entries).Error
	return entries, err
}

func (s *GormAddressBookStore) Remove(ctx context.Context, address string) error {
	return s.db.WithContext(ctx).
		Where("address = ?", address).
		Delete(&model.AddressBookEntry{}).Error
}

// MemoryAddressBookStore 内存实现，供测试与模拟模式使用。
type MemoryAddressBookStore struct {
	mu      sync.Mutex
	entries map[string]model.AddressBookEntry
}

func NewMemoryAddressBookStore() *MemoryAddressBookStore {
	return &MemoryAddressBookStore{entries: make(map[string]model.AddressBookEntry)}
}

func (s *MemoryAddressBookStore) Upsert(ctx context.Context, entry *model.AddressBookEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[entry.Address]; ok {
		existing.Label = entry.Label
		existing.UpdatedAt = time.Now()
		s.entries[entry.Address] = existing
		return nil
	}
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	s.entries[entry.Address] = *entry
	return nil
}

func (s *MemoryAddressBookStore) List(ctx context.Context) ([]model.AddressBookEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AddressBookEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryAddressBookStore) Remove(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, address)
	return nil
}
