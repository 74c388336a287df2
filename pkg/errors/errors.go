package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// JWT и токены
	ErrInvalidSigningMethod = errors.New("неверный метод подписи токена")
	ErrInvalidToken         = errors.New("недопустимый токен")
	ErrTokenExpired         = errors.New("срок действия токена истёк")
	ErrTokenIsNotRefresh    = errors.New("токен не является refresh-токеном")
	ErrTokenIsNotAccess     = errors.New("токен не является access-токеном")

	// Авторизация
	ErrEmptyAuthHeader    = errors.New("заголовок авторизации отсутствует")
	ErrInvalidAuthHeader  = errors.New("неверный формат заголовка авторизации")
	ErrInvalidCredentials = errors.New("неверные учётные данные")
	ErrUnauthorized       = errors.New("неавторизован")
	ErrForbidden          = errors.New("доступ запрещён")
	ErrUserNotFound       = errors.New("пользователь не найден")
	ErrUserDisabled       = errors.New("пользователь заблокирован")

	// Импорт открытых заказов
	ErrEmptyUpload     = errors.New("файл пустой")
	ErrUnsupportedFile = errors.New("неподдерживаемый формат файла, ожидается .xlsx или .csv")
	ErrHeaderNotFound  = errors.New("не найдена строка заголовков таблицы")
	ErrSchemaOutOfDate = errors.New("схема базы данных устарела, выполните миграции")
	ErrImportFailed    = errors.New("импорт не выполнен, повторите загрузку")
	ErrInvalidStatus   = errors.New("неизвестный фильтр статуса")
	ErrNoValidRows     = errors.New("в файле нет ни одной корректной строки")

	// Общие
	ErrNotFound       = errors.New("запись не найдена")
	ErrBadRequest     = errors.New("неверный запрос")
	ErrInternalServer = errors.New("внутренняя ошибка сервера")
)

// HttpError несёт HTTP-код и сообщение для клиента. Err - исходная причина для логов.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, details interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}

// MissingColumnsError - в файле или в схеме БД нет нужных колонок.
type MissingColumnsError struct {
	Where   string
	Columns []string
	base    error
}

func NewMissingColumnsError(where string, columns []string, base error) *MissingColumnsError {
	return &MissingColumnsError{Where: where, Columns: columns, base: base}
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: отсутствуют колонки %v", e.Where, e.Columns)
}

func (e *MissingColumnsError) Unwrap() error { return e.base }

// StatusCode подбирает HTTP-код для ошибки доменного слоя.
func StatusCode(err error) int {
	var httpErr *HttpError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenIsNotAccess), errors.Is(err, ErrTokenIsNotRefresh),
		errors.Is(err, ErrEmptyAuthHeader), errors.Is(err, ErrInvalidAuthHeader),
		errors.Is(err, ErrInvalidSigningMethod), errors.Is(err, ErrUserDisabled):
		return http.StatusUnauthorized
	case errors.Is(err, ErrSchemaOutOfDate):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrEmptyUpload), errors.Is(err, ErrUnsupportedFile),
		errors.Is(err, ErrHeaderNotFound), errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrNoValidRows):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
