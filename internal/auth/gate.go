package auth

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// Password is the only password the login page accepts
const Password = "password"

var (
	ErrMissingUsername = errors.New("please enter a user name")
	ErrInvalidPassword = errors.New("invalid password")
)

// Gate checks the fixed credentials submitted on the login page. It keeps
// no state: a successful check issues no cookie or session and no other
// page consults it.
type Gate struct {
	logger *logrus.Logger
}

// NewGate creates a login gate
func NewGate(logger *logrus.Logger) *Gate {
	if logger == nil {
		logger = logrus.New()
	}
	return &Gate{logger: logger}
}

// Check accepts any non-empty username together with Password
func (g *Gate) Check(username, password string) error {
	if strings.TrimSpace(username) == "" {
		g.logger.Info("Login rejected: empty user name")
		return ErrMissingUsername
	}
	if password != Password {
		g.logger.WithField("username", username).Info("Login rejected: wrong password")
		return ErrInvalidPassword
	}

	g.logger.WithField("username", username).Info("Login accepted")
	return nil
}
