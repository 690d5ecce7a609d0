package workflow

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shouni/go-comic-kit/pkg/domain"
)

// Session は1人のユーザーの画面状態を所有します。
// 書き込みはすべて update を通り、遷移ごとにスナップショットを購読者へ配信するのだ。
type Session struct {
	id string

	// pubMu は「状態の更新」と「配信」をひとまとまりに直列化し、購読者が遷移順に受け取ることを保証します。
	pubMu sync.Mutex

	mu          sync.Mutex
	roster      *domain.Roster
	state       domain.State
	running     bool
	subscribers map[int]Publisher
	nextSubID   int
}

// NewSession は空のキャラクター枠を1つ持つ Idle 状態のセッションを返すのだ。
func NewSession() *Session {
	s := &Session{
		id:          uuid.NewString(),
		roster:      domain.NewRoster(),
		subscribers: make(map[int]Publisher),
	}
	s.state.Phase = domain.PhaseIdle
	s.state.Characters = s.roster.Characters()
	return s
}

// ID はセッションの識別子です。
func (s *Session) ID() string {
	return s.id
}

// Snapshot は現在の状態のディープコピーを返します。
func (s *Session) Snapshot() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Running は生成処理が進行中かどうかを返すのだ。
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Subscribe は p を購読者に登録し、登録時点のスナップショットと解除関数を返します。
// 返したスナップショット以降の遷移はすべて p に届くのだ。
func (s *Session) Subscribe(p Publisher) (domain.State, func()) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = p
	snap := s.state.Clone()
	s.mu.Unlock()

	var once sync.Once
	return snap, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// AddCharacter は空のキャラクター枠を追加します。上限なら domain.ErrRosterFull。
func (s *Session) AddCharacter() (domain.Character, error) {
	var added domain.Character
	err := s.update(func(*domain.State) error {
		c, err := s.roster.Add()
		added = c
		return err
	})
	return added, err
}

// RenameCharacter はキャラクター名をその場で更新するのだ。
func (s *Session) RenameCharacter(id, name string) error {
	return s.update(func(*domain.State) error {
		return s.roster.Rename(id, name)
	})
}

// SetCharacterImage はキャラクターの参照画像を設定するのだ。
func (s *Session) SetCharacterImage(id string, img domain.CharacterImage) error {
	return s.update(func(*domain.State) error {
		return s.roster.SetImage(id, img)
	})
}

// RemoveCharacter はキャラクター枠を削除します。最後の1枠は削除できません。
func (s *Session) RemoveCharacter(id string) error {
	return s.update(func(*domain.State) error {
		return s.roster.Remove(id)
	})
}

// SetStory は物語テキストを更新します。
func (s *Session) SetStory(story string) {
	_ = s.update(func(st *domain.State) error {
		st.Story = story
		return nil
	})
}

// update は fn を排他的に適用し、成功したら新しいスナップショットを配信するのだ。
// fn がエラーを返した場合は何も配信しません。
func (s *Session) update(fn func(st *domain.State) error) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	if err := fn(&s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state.Characters = s.roster.Characters()
	snap := s.state.Clone()
	subs := make([]Publisher, 0, len(s.subscribers))
	for _, p := range s.subscribers {
		subs = append(subs, p)
	}
	s.mu.Unlock()

	for _, p := range subs {
		p.Publish(snap)
	}
	return nil
}

// begin は実行中フラグを立てるのだ。すでに実行中なら false。
func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Session) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}
