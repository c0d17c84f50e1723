package service

import (
	"context"
	"sort"
	"sync"

	"gorm.io/gorm"

	"multisender-core/internal/model"
	"multisender-core/pkg/logger"
)

// HistoryStore 历史记录的底层存储。FIFO 容量控制在 Service 层做，
// 存储层只负责保序读写。
type HistoryStore interface {
	// Append persists one entry. The store assigns Seq in insertion order.
	Append(ctx context.Context, entry *model.HistoryEntry) error
	// Newest returns up to limit entries, newest insertion first.
	Newest(ctx context.Context, limit int) ([]model.HistoryEntry, error)
	// EvictOldest removes entries beyond keep, oldest insertion first.
	EvictOldest(ctx context.Context, keep int) error
}

// HistoryService keeps the most recent completed distributions, bounded by a
// fixed capacity. Eviction is by insertion order, never by timestamp, so
// entries with skewed clocks still leave in the order they arrived.
type HistoryService struct {
	store    HistoryStore
	capacity int
}

func NewHistoryService(store HistoryStore, capacity int) *HistoryService {
	if capacity <= 0 {
		capacity = 10
	}
	return &HistoryService{store: store, capacity: capacity}
}

// Record appends an entry and evicts the oldest beyond capacity.
func (s *HistoryService) Record(ctx context.Context, entry *model.HistoryEntry) error {
	if err := s.store.Append(ctx, entry); err != nil {
		return err
	}
	if err := s.store.EvictOldest(ctx, s.capacity); err != nil {
		// 记录已落库，裁剪失败只影响下一次读取的条数，下次 Record 会补裁
		logger.Warn("history evict failed: " + err.Error())
	}
	return nil
}

// List returns the retained entries, newest first.
func (s *HistoryService) List(ctx context.Context) ([]model.HistoryEntry, error) {
	return s.store.Newest(ctx, s.capacity)
}

// GormHistoryStore persists history entries via GORM.
type GormHistoryStore struct {
	db *gorm.DB
}

func NewGormHistoryStore(db *gorm.DB) *GormHistoryStore {
	return &GormHistoryStore{db: db}
}

func (s *GormHistoryStore) Append(ctx context.Context, entry *model.HistoryEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormHistoryStore) Newest(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	err := s.db.WithContext(ctx).
		Order("seq DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		// 读取失败不应拖垮展示路径，按空历史处理
		logger.Warn("history load failed: " + err.Error())
		return nil, nil
	}
	return entries, nil
}

func (s *GormHistoryStore) EvictOldest(ctx context.Context, keep int) error {
	// 保留 seq 最大的 keep 条，物理删除其余
	sub := s.db.WithContext(ctx).
		Model(&model.HistoryEntry{}).
		Select("seq").
		Order("seq DESC").
		Limit(keep)
	return s.db.WithContext(ctx).
		Unscoped().
		Where("seq NOT IN (?)", sub).
		Delete(&model.HistoryEntry{}).Error
}

// MemoryHistoryStore 内存实现，供测试与模拟模式使用。
type MemoryHistoryStore struct {
	mu      sync.Mutex
	entries []model.HistoryEntry
	nextSeq uint64
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{nextSeq: 1}
}

func (s *MemoryHistoryStore) Append(ctx context.Context, entry *model.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Seq = s.nextSeq
	s.nextSeq++
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *MemoryHistoryStore) Newest(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryHistoryStore) EvictOldest(ctx context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) <= keep {
		return nil
	}
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].Seq < s.entries[j].Seq })
	s.entries = s.entries[len(s.entries)-keep:]
	return nil
}
