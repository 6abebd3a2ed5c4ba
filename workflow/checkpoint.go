package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BaSui01/courseflow/types"
)

// Checkpoint 在每个阶段入口捕获的状态快照，用于恢复与诊断。
type Checkpoint struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id"`
	Seq            int             `json:"seq"`
	Phase          types.Phase     `json:"phase"`
	IterationCount int             `json:"iteration_count"`
	Artifacts      Artifacts       `json:"artifacts"`
	Metrics        *QualityMetrics `json:"quality_metrics,omitempty"`
	MessageCount   int             `json:"message_count"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CheckpointStore 检查点存储。Save 失败不中断运行，由编排器记日志后继续。
type CheckpointStore interface {
	Save(ctx context.Context, cp Checkpoint) error
	Latest(ctx context.Context, sessionID string) (Checkpoint, bool, error)
	List(ctx context.Context, sessionID string) ([]Checkpoint, error)
	Delete(ctx context.Context, sessionID string) error
}

// MemoryCheckpointStore 进程内检查点存储，按会话分组。
type MemoryCheckpointStore struct {
	mu  sync.RWMutex
	cps map[string][]Checkpoint
}

// NewMemoryCheckpointStore 创建进程内检查点存储。
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{cps: make(map[string][]Checkpoint)}
}

// Save 追加一个检查点。
func (s *MemoryCheckpointStore) Save(_ context.Context, cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cps[cp.SessionID] = append(s.cps[cp.SessionID], cp)
	return nil
}

// Latest 返回会话最新的检查点。
func (s *MemoryCheckpointStore) Latest(_ context.Context, sessionID string) (Checkpoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cps := s.cps[sessionID]
	if len(cps) == 0 {
		return Checkpoint{}, false, nil
	}
	return cps[len(cps)-1], true, nil
}

// List 返回会话的全部检查点，按保存顺序。
func (s *MemoryCheckpointStore) List(_ context.Context, sessionID string) ([]Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Checkpoint(nil), s.cps[sessionID]...), nil
}

// Delete 删除会话的全部检查点。
func (s *MemoryCheckpointStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cps, sessionID)
	return nil
}

// RedisCheckpointStore 基于 Redis 列表的检查点存储，供多实例部署共享。
type RedisCheckpointStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCheckpointStore 创建 Redis 检查点存储。ttl<=0 表示不过期。
func NewRedisCheckpointStore(client redis.UniversalClient, ttl time.Duration) *RedisCheckpointStore {
	return &RedisCheckpointStore{client: client, ttl: ttl}
}

func checkpointKey(sessionID string) string {
	return "courseflow:checkpoints:" + sessionID
}

// Save 把检查点序列化后追加到会话列表尾部。
func (s *RedisCheckpointStore) Save(ctx context.Context, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	key := checkpointKey(cp.SessionID)
	if err := s.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("refresh checkpoint ttl: %w", err)
		}
	}
	return nil
}

// Latest 返回会话最新的检查点。
func (s *RedisCheckpointStore) Latest(ctx context.Context, sessionID string) (Checkpoint, bool, error) {
	raw, err := s.client.LIndex(ctx, checkpointKey(sessionID), -1).Result()
	if err == redis.Nil {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("load checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("decode checkpoint: %w", err)
	}
	return cp, true, nil
}

// List 返回会话的全部检查点，按保存顺序。
func (s *RedisCheckpointStore) List(ctx context.Context, sessionID string) ([]Checkpoint, error) {
	rows, err := s.client.LRange(ctx, checkpointKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	cps := make([]Checkpoint, 0, len(rows))
	for _, raw := range rows {
		var cp Checkpoint
		if err := json.Unmarshal([]byte(raw), &cp); err != nil {
			return nil, fmt.Errorf("decode checkpoint: %w", err)
		}
		cps = append(cps, cp)
	}
	return cps, nil
}

// Delete 删除会话的全部检查点。
func (s *RedisCheckpointStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, checkpointKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete checkpoints: %w", err)
	}
	return nil
}
