package engine

import (
	"encoding/binary"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/gocolly/colly/v2/storage"
)

// BloomStorage 基于布隆过滤器的colly访问记录存储
// 内存占用固定,代价是少量URL被误判为已访问而跳过。Cookie仍保存在内存中
type BloomStorage struct {
	*storage.InMemoryStorage

	capacity uint
	fpRate   float64

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewBloomStorage 创建存储,capacity 为预计URL数量,fpRate 为误判率
func NewBloomStorage(capacity uint, fpRate float64) *BloomStorage {
	if capacity == 0 {
		capacity = 1_000_000
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.0001
	}
	return &BloomStorage{
		InMemoryStorage: &storage.InMemoryStorage{},
		capacity:        capacity,
		fpRate:          fpRate,
	}
}

// Init 实现 storage.Storage
func (s *BloomStorage) Init() error {
	if err := s.InMemoryStorage.Init(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter == nil {
		s.filter = bloom.NewWithEstimates(s.capacity, s.fpRate)
	}
	return nil
}

// Visited 实现 storage.Storage
func (s *BloomStorage) Visited(requestID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.Add(requestKey(requestID))
	return nil
}

// IsVisited 实现 storage.Storage
func (s *BloomStorage) IsVisited(requestID uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.Test(requestKey(requestID)), nil
}

// ApproximatedSize 估算已记录的请求数
func (s *BloomStorage) ApproximatedSize() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.ApproximatedSize()
}

func requestKey(id uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return b[:]
}
