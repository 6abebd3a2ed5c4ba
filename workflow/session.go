package workflow

import (
	"sync"
	"time"

	"github.com/BaSui01/courseflow/types"
)

// SessionState 会话生命周期状态。
type SessionState string

const (
	SessionPending   SessionState = "pending"
	SessionRunning   SessionState = "running"
	SessionCompleted SessionState = "completed"
	SessionFailed    SessionState = "failed"
	SessionCancelled SessionState = "cancelled"
)

// Session 一次课程设计运行的会话记录。
// Config 为会话级配置覆盖，nil 表示启动时使用编排器默认配置。
type Session struct {
	ID           string             `json:"id"`
	Requirements types.Requirements `json:"requirements"`
	Config       *Config            `json:"-"`
	State        SessionState       `json:"state"`
	Phase        types.Phase        `json:"phase"`
	Deliverable  *Deliverable       `json:"deliverable,omitempty"`
	Err          string             `json:"error,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// SessionStore 会话存储。
type SessionStore interface {
	Put(sess Session)
	Get(id string) (Session, bool)
	Evict(id string) bool
	Len() int
}

// MemorySessionStore 进程内会话存储。
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemorySessionStore 创建进程内会话存储。
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

// Put 写入或覆盖一个会话。
func (s *MemorySessionStore) Put(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.UpdatedAt = time.Now()
	s.sessions[sess.ID] = sess
}

// Get 按 ID 查询会话。
func (s *MemorySessionStore) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Evict 删除会话，返回是否存在。
func (s *MemorySessionStore) Evict(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len 返回当前会话数。
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
