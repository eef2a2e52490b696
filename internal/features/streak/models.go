// Package streak управляет ежедневным шансом: раз в сутки (по Москве)
// пользователь забирает бонус, размер которого растёт с длиной серии.
// models.go описывает структуру данных стрика.
package streak

import "time"

// Streak представляет запись стрика пользователя.
type Streak struct {
	ID            int64      `db:"id"`
	UserID        int64      `db:"user_id"`
	CurrentStreak int        `db:"current_streak"`  // Текущая серия (дней подряд)
	LongestStreak int        `db:"longest_streak"`  // Личный рекорд
	LastClaimDate *time.Time `db:"last_claim_date"` // Дата последнего получения (по Москве)
	TotalClaims   int        `db:"total_claims"`    // Сколько раз бонус забирали
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// ClaimedOn сообщает, забирался ли бонус в указанный день.
func (s *Streak) ClaimedOn(day time.Time) bool {
	return s.LastClaimDate != nil && sameDay(*s.LastClaimDate, day)
}

// Claim — итог получения ежедневного бонуса.
type Claim struct {
	Day       int       `json:"day"`    // День серии после получения
	Reward    int64     `json:"reward"` // Начислено DUNA
	Longest   int       `json:"longest"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// StreakRewards — бонусы за стрики по дням.
// Индекс массива = день серии минус один. С 7-го дня и далее: 70.
var StreakRewards = []int64{10, 20, 30, 40, 50, 60, 70}

// GetReward возвращает бонус за день серии (1, 2, ...).
// День 1 → 10, День 2 → 20, ..., День 7+ → 70
func GetReward(day int) int64 {
	if day < 1 {
		day = 1
	}
	if day <= len(StreakRewards) {
		return StreakRewards[day-1]
	}
	return StreakRewards[len(StreakRewards)-1]
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
