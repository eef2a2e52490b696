package casino

import "sync"

// HistoryCaps: сколько последних раундов хранится по каждой игре.
var HistoryCaps = map[GameKind]int{
	GameBlackjack: 20,
	GameDice:      20,
	GameBaccarat:  15,
	GameRoulette:  10,
}

// historyBook: история раундов в памяти, новые первыми.
type historyBook struct {
	mu    sync.RWMutex
	caps  map[GameKind]int
	items map[int64]map[GameKind][]RoundResult
}

func newHistoryBook(caps map[GameKind]int) *historyBook {
	return &historyBook{caps: caps, items: make(map[int64]map[GameKind][]RoundResult)}
}

func (h *historyBook) push(r RoundResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	games, ok := h.items[r.UserID]
	if !ok {
		games = make(map[GameKind][]RoundResult)
		h.items[r.UserID] = games
	}
	limit := h.caps[r.Game]
	if limit <= 0 {
		limit = 10
	}

	list := append([]RoundResult{r}, games[r.Game]...)
	if len(list) > limit {
		list = list[:limit]
	}
	games[r.Game] = list
}

func (h *historyBook) list(userID int64, game GameKind) []RoundResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	src := h.items[userID][game]
	out := make([]RoundResult, len(src))
	copy(out, src)
	return out
}
