package server

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

// SessionStore はセッションをメモリ上に TTL 付きで保持します。プロセスを越えた永続化はしません。
type SessionStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewSessionStore は ttl で期限切れになり cleanup 間隔で掃除されるストアを返すのだ。
func NewSessionStore(ttl, cleanup time.Duration) *SessionStore {
	return &SessionStore{
		cache: cache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

// Get はセッションを取り出し、アクセスのたびに有効期限を延長するのだ。
func (s *SessionStore) Get(id string) (*workflow.Session, bool) {
	if id == "" {
		return nil, false
	}
	v, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	sess, ok := v.(*workflow.Session)
	if !ok {
		return nil, false
	}
	s.cache.Set(id, sess, s.ttl)
	return sess, true
}

// Create は新しいセッションを作成して登録します。
func (s *SessionStore) Create() *workflow.Session {
	sess := workflow.NewSession()
	s.cache.Set(sess.ID(), sess, s.ttl)
	return sess
}

// Len は保持しているセッション数です。
func (s *SessionStore) Len() int {
	return s.cache.ItemCount()
}
