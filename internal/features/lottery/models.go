// Package lottery — ежемесячная лотерея: бесплатный билет раз в месяц,
// дополнительные билеты за DUNA и розыгрыш одного победителя.
package lottery

import (
	"fmt"
	"time"

	"serotonyl.ru/duna-casino/internal/common"
)

// Ticket: лотерейный билет.
type Ticket struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Code      string    `db:"ticket_code" json:"ticket_code"`
	Month     int       `db:"month" json:"month"`
	Year      int       `db:"year" json:"year"`
	IsFree    bool      `db:"is_free" json:"is_free"`
	IsWinner  bool      `db:"is_winner" json:"is_winner"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Display возвращает код в виде XXXX-XXXX.
func (t *Ticket) Display() string { return common.FormatTicketCode(t.Code) }

// Winner: победитель розыгрыша за месяц.
type Winner struct {
	ID         int64     `db:"id" json:"id"`
	TicketID   int64     `db:"ticket_id" json:"ticket_id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	TicketCode string    `db:"ticket_code" json:"ticket_code"`
	Month      int       `db:"month" json:"month"`
	Year       int       `db:"year" json:"year"`
	Prize      string    `db:"prize" json:"prize"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Period: месяц розыгрыша.
type Period struct {
	Month int
	Year  int
}

// PeriodOf возвращает месяц момента t по Москве.
func PeriodOf(t time.Time) Period {
	t = t.In(common.MoscowLocation())
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// Previous: предыдущий месяц.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// Valid проверяет номер месяца.
func (p Period) Valid() bool { return p.Month >= 1 && p.Month <= 12 && p.Year > 0 }

func (p Period) String() string { return fmt.Sprintf("%02d.%d", p.Month, p.Year) }

// codeAlphabet: символы кода билета.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength: длина кода билета.
const CodeLength = 8
