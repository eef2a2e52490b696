// Package common содержит общие утилиты, используемые во всём проекте:
// форматирование сумм, работа с московским временем.
package common

import (
	"fmt"
	"time"
)

// CurrencyName — отображаемое название игровой валюты.
const CurrencyName = "DUNA"

// FormatBalance форматирует сумму DUNA в читабельную строку.
// Пример: FormatBalance(2350) → "2 350 DUNA"
func FormatBalance(balance int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(balance), CurrencyName)
}

// FormatSigned создаёт строку вида "+100 DUNA" или "-50 DUNA".
func FormatSigned(amount int64) string {
	if amount >= 0 {
		return "+" + FormatBalance(amount)
	}
	return FormatBalance(amount)
}

// PluralizeDays возвращает правильную форму слова «день» для числа n.
//
// Правила:
//   - 1, 21, 31 → "день"
//   - 2-4, 22-24 → "дня"
//   - 5-20, 25-30 → "дней"
func PluralizeDays(n int) string {
	absN := n
	if absN < 0 {
		absN = -absN
	}
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "день"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "дня"
	}
	return "дней"
}

// MoscowLocation возвращает часовой пояс Europe/Moscow.
// Если tzdata недоступна, UTC+3 вручную.
func MoscowLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// MoscowDate возвращает дату (без времени) момента t по Москве.
func MoscowDate(t time.Time) time.Time {
	t = t.In(MoscowLocation())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FormatDateTime форматирует время в "02.01.2006 15:04" по Москве.
func FormatDateTime(t time.Time) string {
	return t.In(MoscowLocation()).Format("02.01.2006 15:04")
}
