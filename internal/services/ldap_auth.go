package services

import (
	"fmt"
	"net/http"

	"warehouse-system/pkg/config"
	apperrors "warehouse-system/pkg/errors"

	ldap "github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

// DirectoryAuthenticator проверяет пароль доменного пользователя.
type DirectoryAuthenticator interface {
	Authenticate(username, password string) error
}

type ldapSession interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
}

type LDAPAuthenticator struct {
	cfg    config.LDAPConfig
	logger *zap.Logger
	dial   func(url string) (ldapSession, func(), error)
}

func NewLDAPAuthenticator(cfg config.LDAPConfig, logger *zap.Logger) *LDAPAuthenticator {
	return &LDAPAuthenticator{cfg: cfg, logger: logger, dial: dialLDAP}
}

func dialLDAP(url string) (ldapSession, func(), error) {
	conn, err := ldap.DialURL(url)
	if err != nil {
		return nil, nil, err
	}
	return conn, func() { conn.Close() }, nil
}

// Authenticate ищет DN пользователя под сервисной учёткой и выполняет bind с его паролем.
func (a *LDAPAuthenticator) Authenticate(username, password string) error {
	// пустой пароль в LDAP - анонимный bind, он всегда успешен
	if password == "" {
		return apperrors.ErrInvalidCredentials
	}

	conn, closeConn, err := a.dial(fmt.Sprintf("ldap://%s:%d", a.cfg.Host, a.cfg.Port))
	if err != nil {
		a.logger.Error("[LDAP] Не удалось подключиться к серверу", zap.Error(err))
		return apperrors.NewHttpError(http.StatusServiceUnavailable, "Каталог пользователей недоступен", err, nil)
	}
	defer closeConn()

	if a.cfg.BindDN != "" {
		if err := conn.Bind(a.cfg.BindDN, a.cfg.BindPassword); err != nil {
			a.logger.Error("[LDAP] Bind сервисной учётной записи не удался", zap.String("bind_dn", a.cfg.BindDN), zap.Error(err))
			return apperrors.NewHttpError(http.StatusServiceUnavailable, "Каталог пользователей недоступен", err, nil)
		}
	}

	filter := fmt.Sprintf(a.cfg.UserFilterPattern, ldap.EscapeFilter(username))
	res, err := conn.Search(ldap.NewSearchRequest(
		a.cfg.SearchBaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 2, 0, false,
		filter,
		[]string{"dn"},
		nil,
	))
	if err != nil {
		a.logger.Error("[LDAP] Ошибка поиска", zap.String("filter", filter), zap.Error(err))
		return apperrors.NewHttpError(http.StatusServiceUnavailable, "Каталог пользователей недоступен", err, nil)
	}
	if len(res.Entries) != 1 {
		a.logger.Info("[LDAP] Пользователь не найден или не уникален", zap.String("username", username), zap.Int("found", len(res.Entries)))
		return apperrors.ErrInvalidCredentials
	}

	if err := conn.Bind(res.Entries[0].DN, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return apperrors.ErrInvalidCredentials
		}
		return fmt.Errorf("ldap bind: %w", err)
	}
	return nil
}
