package casino

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"serotonyl.ru/duna-casino/internal/features/casino/blackjack"
)

// blackjackRound: незавершённая раздача блэкджека. Держит слот раунда пользователя.
type blackjackRound struct {
	mu        sync.Mutex
	id        uuid.UUID
	game      *blackjack.Game
	startedAt time.Time
	done      bool
}

// sessions: слот раунда на пользователя: одновременно не больше одного раунда.
type sessions struct {
	mu        sync.Mutex
	busy      map[int64]struct{}
	blackjack map[int64]*blackjackRound
}

func newSessions() *sessions {
	return &sessions{
		busy:      make(map[int64]struct{}),
		blackjack: make(map[int64]*blackjackRound),
	}
}

// acquire занимает слот. false: у пользователя уже идёт раунд.
func (s *sessions) acquire(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.busy[userID]; ok {
		return false
	}
	s.busy[userID] = struct{}{}
	return true
}

func (s *sessions) release(userID int64) {
	s.mu.Lock()
	delete(s.busy, userID)
	delete(s.blackjack, userID)
	s.mu.Unlock()
}

func (s *sessions) setBlackjack(userID int64, r *blackjackRound) {
	s.mu.Lock()
	s.blackjack[userID] = r
	s.mu.Unlock()
}

func (s *sessions) activeBlackjack(userID int64) (*blackjackRound, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.blackjack[userID]
	return r, ok
}

// openBlackjack: снимок незавершённых раздач по пользователям.
func (s *sessions) openBlackjack() map[int64]*blackjackRound {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]*blackjackRound, len(s.blackjack))
	for userID, r := range s.blackjack {
		out[userID] = r
	}
	return out
}
