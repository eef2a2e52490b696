// Package referrals реализует приглашения друзей: у каждого игрока свой код,
// приглашённый активирует его один раз, оба получают бонус DUNA.
package referrals

import (
	"strconv"
	"strings"
	"time"
)

// CodeLength: длина кода приглашения.
const CodeLength = 8

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// StartPrefix: префикс параметра /start и startapp в ссылке приглашения.
const StartPrefix = "ref_"

// Referral: запись о приглашении.
type Referral struct {
	ID        int64     `db:"id" json:"id"`
	InviterID int64     `db:"inviter_id" json:"inviter_id"`
	InviteeID int64     `db:"invitee_id" json:"invitee_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Invitee: приглашённый друг в списке пригласившего.
type Invitee struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	JoinedAt  time.Time `json:"joined_at"`
}

// DisplayName: @username или имя.
func (i *Invitee) DisplayName() string {
	return displayName(i.Username, i.FirstName, i.LastName, i.UserID)
}

// Inviter: строка рейтинга пригласивших.
type Inviter struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	TotalInvites int    `json:"total_invites"`
}

// DisplayName: @username или имя.
func (i *Inviter) DisplayName() string {
	return displayName(i.Username, i.FirstName, i.LastName, i.UserID)
}

// Activation: итог активации кода.
type Activation struct {
	Referral      *Referral `json:"referral"`
	Bonus         int64     `json:"bonus"`
	InviteeQueued bool      `json:"invitee_queued"`
	InviterQueued bool      `json:"inviter_queued"`
}

// Summary: всё, что нужно вкладке «Друзья».
type Summary struct {
	Code      string     `json:"code"`
	Bonus     int64      `json:"bonus"`
	InvitedBy *int64     `json:"invited_by,omitempty"`
	Invited   []*Invitee `json:"invited"`
}

// NormalizeCode приводит введённый код к виду из БД: без пробелов,
// префикса ref_ и в верхнем регистре.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) > len(StartPrefix) && strings.EqualFold(code[:len(StartPrefix)], StartPrefix) {
		code = code[len(StartPrefix):]
	}
	return strings.ToUpper(code)
}

func displayName(username, first, last string, userID int64) string {
	if username != "" {
		return "@" + username
	}
	if name := strings.TrimSpace(first + " " + last); name != "" {
		return name
	}
	return "id" + strconv.FormatInt(userID, 10)
}
