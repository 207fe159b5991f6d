package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/exam"
)

const minPasswordLen = 6

// Accounts registers users and exchanges credentials for access tokens.
type Accounts struct {
	store exam.Store
	auth  *AuthService
	cost  int
	log   *zap.Logger
}

func NewAccounts(store exam.Store, a *AuthService, log *zap.Logger) *Accounts {
	if log == nil {
		log = zap.NewNop()
	}
	return &Accounts{store: store, auth: a, cost: bcrypt.DefaultCost, log: log}
}

type Registration struct {
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Password string    `json:"password"`
	Role     exam.Role `json:"role"`
}

type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        exam.User `json:"user"`
}

func (a *Accounts) Register(ctx context.Context, in Registration) (exam.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.FullName)
	if in.Role == "" {
		in.Role = exam.RoleStudent
	}
	switch {
	case email == "" || name == "":
		return exam.User{}, fmt.Errorf("%w: email and full_name are required", exam.ErrInvalidInput)
	case !validEmail(email):
		return exam.User{}, fmt.Errorf("%w: malformed email", exam.ErrInvalidInput)
	case len(in.Password) < minPasswordLen:
		return exam.User{}, fmt.Errorf("%w: password must be at least %d characters", exam.ErrInvalidInput, minPasswordLen)
	case !in.Role.Valid():
		return exam.User{}, fmt.Errorf("%w: role must be teacher or student", exam.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.cost)
	if err != nil {
		return exam.User{}, err
	}
	u, err := a.store.CreateUser(ctx, exam.User{Email: email, FullName: name, PasswordHash: string(hash), Role: in.Role})
	if err != nil {
		return exam.User{}, err
	}
	a.log.Info("user registered", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Login never reveals whether the email or the password was wrong.
func (a *Accounts) Login(ctx context.Context, email, password string) (Token, error) {
	u, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, exam.ErrNotFound) {
			return Token{}, fmt.Errorf("%w: invalid credentials", exam.ErrUnauthorized)
		}
		return Token{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Token{}, fmt.Errorf("%w: invalid credentials", exam.ErrUnauthorized)
	}
	tok, err := a.auth.IssueJWT(u)
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: tok, TokenType: "bearer", User: u}, nil
}

func (a *Accounts) Me(ctx context.Context, v exam.Viewer) (exam.User, error) {
	return a.store.GetUser(ctx, v.ID)
}

func (a *Accounts) ChangePassword(ctx context.Context, v exam.Viewer, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", exam.ErrInvalidInput, minPasswordLen)
	}
	u, err := a.store.GetUser(ctx, v.ID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return fmt.Errorf("%w: incorrect old password", exam.ErrForbidden)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), a.cost)
	if err != nil {
		return err
	}
	return a.store.UpdateUserPassword(ctx, u.ID, string(hash))
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
