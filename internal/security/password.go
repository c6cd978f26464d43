package security

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordChecker хранит только bcrypt-хеш пароля диагностики.
// Без пароля Check всегда false: дашборд остаётся закрытым.
type PasswordChecker struct {
	hash []byte
}

// NewPasswordChecker принимает готовый bcrypt-хеш или открытый пароль
// (хешируется при старте). Хеш приоритетнее.
func NewPasswordChecker(plain, hash string) (*PasswordChecker, error) {
	switch {
	case hash != "":
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, err
		}
		return &PasswordChecker{hash: []byte(hash)}, nil
	case plain != "":
		h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		return &PasswordChecker{hash: h}, nil
	default:
		return &PasswordChecker{}, nil
	}
}

func (c *PasswordChecker) Configured() bool {
	return c != nil && len(c.hash) > 0
}

func (c *PasswordChecker) Check(plain string) bool {
	if !c.Configured() || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.hash, []byte(plain)) == nil
}
