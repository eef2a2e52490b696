// Package members управляет игроками: регистрацией при первом обращении
// (бот или Mini-App), флагами администратора и бана.
// models.go описывает структуры данных для работы с таблицей members.
package members

import "time"

// Member представляет игрока в базе данных.
type Member struct {
	ID         int64     `db:"id"`           // Автоинкрементный ID записи в БД
	UserID     int64     `db:"user_id"`      // Telegram user ID (уникальный)
	Username   string    `db:"username"`     // @username (может быть пустым)
	FirstName  string    `db:"first_name"`   // Имя пользователя
	LastName   string    `db:"last_name"`    // Фамилия (может быть пустой)
	IsAdmin    bool      `db:"is_admin"`     // Флаг администратора
	IsBanned   bool      `db:"is_banned"`    // Флаг бана
	JoinedAt   time.Time `db:"joined_at"`    // Первое появление
	LastSeenAt time.Time `db:"last_seen_at"` // Последнее обращение
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Profile — данные пользователя из Telegram (апдейт бота или initData Mini-App).
type Profile struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

// DisplayName возвращает отображаемое имя пользователя.
// Если есть @username, возвращает его, иначе имя + фамилию.
func (m *Member) DisplayName() string {
	return Profile{Username: m.Username, FirstName: m.FirstName, LastName: m.LastName}.DisplayName()
}

// DisplayName — то же для профиля.
func (p Profile) DisplayName() string {
	if p.Username != "" {
		return "@" + p.Username
	}
	name := p.FirstName
	if p.LastName != "" {
		name += " " + p.LastName
	}
	return name
}
