// Package api — HTTP API для Telegram Mini-App.
// auth.go проверяет подпись initData и кладёт пользователя в контекст запроса.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/members"
)

// authScheme: префикс заголовка Authorization.
const authScheme = "tma "

// WebAppUser: поле user из initData.
type WebAppUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	IsBot     bool   `json:"is_bot"`
}

// InitData: проверенные данные запуска Mini-App.
type InitData struct {
	User     WebAppUser
	AuthDate time.Time
	QueryID  string
}

// Profile переводит пользователя initData в профиль участника.
func (d *InitData) Profile() members.Profile {
	return members.Profile{
		UserID:    d.User.ID,
		Username:  d.User.Username,
		FirstName: d.User.FirstName,
		LastName:  d.User.LastName,
	}
}

// Identity: кто делает запрос.
type Identity struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}

type identityKey struct{}

// WithIdentity кладёт пользователя в контекст.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom достаёт пользователя из контекста.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// ValidateInitData проверяет подпись initData ключом бота и давность auth_date.
// maxAge = 0 отключает проверку давности.
func ValidateInitData(raw, botToken string, maxAge time.Duration, now time.Time) (*InitData, error) {
	// давность проверяем сами: now приходит снаружи
	if err := initdata.Validate(raw, botToken, 0); err != nil {
		return nil, fmt.Errorf("подпись initData: %w: %w", common.ErrUnauthorized, err)
	}
	parsed, err := initdata.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("разбор initData: %w: %w", common.ErrUnauthorized, err)
	}

	authDate := parsed.AuthDate()
	if maxAge > 0 && now.Sub(authDate) > maxAge {
		return nil, fmt.Errorf("initData устарела (%s): %w", authDate.Format(time.RFC3339), common.ErrUnauthorized)
	}
	if parsed.User.ID == 0 {
		return nil, fmt.Errorf("поле user: %w", common.ErrUnauthorized)
	}

	return &InitData{
		User: WebAppUser{
			ID:        parsed.User.ID,
			FirstName: parsed.User.FirstName,
			LastName:  parsed.User.LastName,
			Username:  parsed.User.Username,
			IsBot:     parsed.User.IsBot,
		},
		AuthDate: authDate,
		QueryID:  parsed.QueryID,
	}, nil
}

// authenticate пропускает запрос только с валидным initData.
// Пользователь регистрируется при первом обращении, забаненный получает 403.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, authScheme) {
			s.writeError(w, r, common.ErrUnauthorized)
			return
		}

		data, err := ValidateInitData(strings.TrimPrefix(header, authScheme), s.cfg.BotToken, s.cfg.InitDataMaxAge, s.now())
		if err != nil {
			log.WithError(err).WithField("path", r.URL.Path).Debug("initData отклонена")
			s.writeError(w, r, common.ErrUnauthorized)
			return
		}

		profile := data.Profile()
		if err := s.deps.Members.EnsureMember(r.Context(), profile); err != nil {
			s.writeError(w, r, err)
			return
		}

		id := Identity{ID: profile.UserID, DisplayName: profile.DisplayName()}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
