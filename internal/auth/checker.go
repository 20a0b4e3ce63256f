package auth

import "context"

var (
	_ Checker = (*LoginChecker)(nil)
	_ Checker = (*LoginTestChecker)(nil)
)

type Checker interface {
	IsLogged(ctx context.Context, token string) (bool, error)
}

// LoginTestChecker is an in-memory Checker for handler tests.
type LoginTestChecker struct {
	LoggedSessions map[string]bool
}

func NewLoginTestChecker() *LoginTestChecker {
	return &LoginTestChecker{
		LoggedSessions: map[string]bool{},
	}
}

func (c *LoginTestChecker) IsLogged(_ context.Context, token string) (bool, error) {
	return c.LoggedSessions[token], nil
}
