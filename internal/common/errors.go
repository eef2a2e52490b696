// Package common — errors.go определяет ошибки, которые используются во всех модулях.
// Обработчики (бот, HTTP API) различают по ним типы проблем
// и показывают пользователю понятные сообщения.
package common

import "errors"

// Ошибки валидации ставки. Мутаций баланса при них не происходит.
var (
	// ErrBelowMinimum — ставка меньше минимальной
	ErrBelowMinimum = errors.New("ставка меньше минимальной")
	// ErrExceedsBalance — ставка больше баланса
	ErrExceedsBalance = errors.New("ставка превышает баланс")
	// ErrInvalidMultiplier — множитель вне допустимого диапазона
	ErrInvalidMultiplier = errors.New("недопустимый множитель ставки")
	// ErrInvalidSelection — неизвестный тип ставки или значение
	ErrInvalidSelection = errors.New("недопустимый выбор ставки")
)

// Ошибки экономики (DUNA, TON)
var (
	// ErrInsufficientBalance — недостаточно средств на счёте
	ErrInsufficientBalance = errors.New("недостаточно средств на счёте")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrUserBanned — пользователь заблокирован
	ErrUserBanned = errors.New("доступ заблокирован")
	// ErrLedgerUnavailable — хранилище балансов недоступно
	ErrLedgerUnavailable = errors.New("хранилище балансов недоступно")
	// ErrBonusAlreadyClaimed — бонус уже получен
	ErrBonusAlreadyClaimed = errors.New("бонус уже получен")
)

// Ошибки раундов казино
var (
	// ErrRoundInProgress — у пользователя уже идёт раунд
	ErrRoundInProgress = errors.New("раунд уже идёт, дождитесь результата")
	// ErrNoActiveRound — действие без активного раунда
	ErrNoActiveRound = errors.New("нет активного раунда")
	// ErrInvalidAction — действие недопустимо в текущей фазе
	ErrInvalidAction = errors.New("действие недопустимо в текущей фазе")
	// ErrDeckExhausted — колода закончилась (нарушение инварианта, дефект)
	ErrDeckExhausted = errors.New("колода исчерпана")
	// ErrCasinoDisabled — казино отключено в настройках
	ErrCasinoDisabled = errors.New("казино временно отключено")
)

// ErrFeatureDisabled — раздел выключен флагом FEATURE_*_ENABLED
var ErrFeatureDisabled = errors.New("раздел временно отключён")

// Ошибки лотереи
var (
	// ErrTicketAlreadyClaimed — бесплатный билет за месяц уже получен
	ErrTicketAlreadyClaimed = errors.New("бесплатный билет в этом месяце уже получен")
	// ErrDrawAlreadyDone — розыгрыш за месяц уже проведён
	ErrDrawAlreadyDone = errors.New("розыгрыш за этот месяц уже проведён")
	// ErrNoTickets — нет билетов для розыгрыша
	ErrNoTickets = errors.New("нет билетов для розыгрыша")
)

// Ошибки реферальной программы
var (
	// ErrReferralCodeNotFound — такого кода приглашения нет
	ErrReferralCodeNotFound = errors.New("код приглашения не найден")
	// ErrSelfReferral — свой код активировать нельзя
	ErrSelfReferral = errors.New("нельзя активировать собственный код")
	// ErrReferralAlreadyActivated — у пользователя уже есть пригласивший
	ErrReferralAlreadyActivated = errors.New("код приглашения уже активирован")
)

// Ошибки платежей TON
var (
	// ErrBelowMinimumTon — сумма меньше минимальной
	ErrBelowMinimumTon = errors.New("сумма TON меньше минимальной")
	// ErrPaymentNotFound — платёж не найден
	ErrPaymentNotFound = errors.New("платёж не найден")
	// ErrPaymentResolved — платёж уже обработан
	ErrPaymentResolved = errors.New("платёж уже обработан")
	// ErrInvalidWallet — некорректный адрес кошелька
	ErrInvalidWallet = errors.New("некорректный адрес кошелька")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)

// Ошибки аутентификации Mini-App
var (
	// ErrUnauthorized — initData отсутствует или подпись неверна
	ErrUnauthorized = errors.New("не удалось подтвердить пользователя Telegram")
)

// IsValidation сообщает, является ли ошибка ошибкой валидации ставки.
func IsValidation(err error) bool {
	return errors.Is(err, ErrBelowMinimum) ||
		errors.Is(err, ErrExceedsBalance) ||
		errors.Is(err, ErrInvalidMultiplier) ||
		errors.Is(err, ErrInvalidSelection) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrBelowMinimumTon) ||
		errors.Is(err, ErrInvalidWallet) ||
		errors.Is(err, ErrSelfReferral)
}
