package security

import "errors"

// Таксономия ошибок сессионной подсистемы.
// Наружу, за пределы guard, уходит только ErrUnauthorized:
// клиент не должен отличать просроченный токен от подделанного или повторно
// использованного. Остальные значения используются внутри через errors.Is.
var (
	// ErrMalformed : токен не разбирается или имеет неверную структуру.
	ErrMalformed = errors.New("токен имеет неверный формат")

	// ErrInvalidSignature : подпись не совпадает. Токен, подписанный чужим
	// секретом, неотличим от подделанного.
	ErrInvalidSignature = errors.New("неверная подпись токена")

	// ErrExpired : срок действия токена истёк.
	ErrExpired = errors.New("срок действия токена истёк")

	// ErrInvalidToken : refresh-токен не прошёл проверку при ротации.
	ErrInvalidToken = errors.New("невалидный токен")

	// ErrAlreadyRotated : запись уже ротирована, условное обновление не прошло.
	ErrAlreadyRotated = errors.New("токен уже был использован")

	// ErrReplayDetected : повторное использование ротированного refresh-токена,
	// всё семейство отозвано.
	ErrReplayDetected = errors.New("обнаружено повторное использование токена")

	// ErrDuplicateGeneration : вставка записи с уже занятым поколением.
	// При корректной последовательной работе не возникает, считается
	// операционной ошибкой, а не ошибкой безопасности.
	ErrDuplicateGeneration = errors.New("поколение токена уже существует")

	// ErrPrincipalInactive : пользователь не найден или деактивирован.
	ErrPrincipalInactive = errors.New("пользователь не найден или неактивен")

	// ErrUnauthorized : единственная ошибка, видимая за границей подсистемы.
	ErrUnauthorized = errors.New("не авторизован")
)

// IsAuthError сообщает, относится ли ошибка к таксономии безопасности.
// Всё, что к ней не относится (отказ БД и т.п.), guard трактует как
// операционную ошибку и отвечает 500, а не 401.
func IsAuthError(err error) bool {
	for _, target := range []error{
		ErrMalformed,
		ErrInvalidSignature,
		ErrExpired,
		ErrInvalidToken,
		ErrAlreadyRotated,
		ErrReplayDetected,
		ErrPrincipalInactive,
		ErrUnauthorized,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
