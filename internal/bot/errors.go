package bot

import (
	"errors"

	"github.com/C4T-BuT-S4D/predlozhka/internal/moderation"
)

// userMessage turns a failed operation into the text shown to the actor.
func userMessage(err error) string {
	switch {
	case errors.Is(err, moderation.ErrBlocked):
		return "🚫 Извините, вы были заблокированы в боте."
	case errors.Is(err, moderation.ErrForbidden):
		return "❌ У вас нет доступа к этой команде."
	case errors.Is(err, moderation.ErrNotFound):
		return "❌ Не найдено."
	case errors.Is(err, moderation.ErrInvalidTransition):
		return "ℹ️ Уже обработано другим администратором."
	case errors.Is(err, moderation.ErrValidation):
		return "❌ Некорректный ввод, попробуйте еще раз."
	default:
		return "⚠️ Произошла ошибка. Попробуйте позже."
	}
}

// isStale means the buttons the actor pressed refer to something that was
// already handled or no longer exists.
func isStale(err error) bool {
	return errors.Is(err, moderation.ErrInvalidTransition) || errors.Is(err, moderation.ErrNotFound)
}
