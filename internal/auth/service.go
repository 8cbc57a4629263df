// Package auth registers and logs in players and guards the HTTP API with
// signed bearer tokens.
package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"roulette_service/internal/apperr"
	"roulette_service/internal/wallet"
)

const (
	DefaultAvatar = "👤"

	minPasswordLength = 6
	maxUsernameLength = 50
)

type LoginResult struct {
	Token    string          `json:"token"`
	UserID   string          `json:"userId"`
	Username string          `json:"username"`
	Role     wallet.Role     `json:"role"`
	Balance  decimal.Decimal `json:"balance"`
}

type Service struct {
	accounts wallet.AccountRepository
	tokens   *Tokens
}

func NewService(accounts wallet.AccountRepository, tokens *Tokens) *Service {
	return &Service{accounts: accounts, tokens: tokens}
}

// Register creates a player. A non-empty affiliateCode must be the id of an
// existing account, which becomes the player's referring partner.
func (s *Service) Register(ctx context.Context, username, password, affiliateCode string) (*wallet.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLength {
		return nil, apperr.New(apperr.KindInvalidRequest, "username must be 1 to 50 characters")
	}
	if len(password) < minPasswordLength {
		return nil, apperr.New(apperr.KindInvalidRequest, "password must be at least 6 characters")
	}

	a := &wallet.Account{
		Username: username,
		Avatar:   DefaultAvatar,
		Role:     wallet.RoleUser,
	}
	if code := strings.TrimSpace(affiliateCode); code != "" {
		if !wallet.ValidID(code) {
			return nil, apperr.New(apperr.KindInvalidRequest, "unknown affiliate code")
		}
		if _, err := s.accounts.GetAccount(ctx, code); err != nil {
			if errors.Is(err, wallet.ErrAccountNotFound) {
				return nil, apperr.New(apperr.KindInvalidRequest, "unknown affiliate code")
			}
			return nil, err
		}
		a.AffiliateID = &code
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	a.PasswordHash = string(hash)

	if err := s.accounts.CreateAccount(ctx, a); err != nil {
		if errors.Is(err, wallet.ErrUsernameTaken) {
			return nil, apperr.Wrap(apperr.KindConflict, "username already taken", err)
		}
		return nil, err
	}
	log.Printf("User registered: user=%s referred=%t", a.UserID, a.AffiliateID != nil)
	return a, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	a, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, wallet.ErrAccountNotFound) {
			return nil, apperr.New(apperr.KindUnauthorized, "invalid credentials")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid credentials")
	}

	token, err := s.tokens.Issue(Claims{
		UserID:   a.UserID,
		Username: a.Username,
		Role:     string(a.Role),
		Avatar:   a.Avatar,
	})
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:    token,
		UserID:   a.UserID,
		Username: a.Username,
		Role:     a.Role,
		Balance:  a.RealBalance,
	}, nil
}

type SeedAccount struct {
	Username string
	Role     wallet.Role
	Balance  decimal.Decimal
}

// Seed creates the given accounts with password unless the username exists.
func (s *Service) Seed(ctx context.Context, password string, seeds []SeedAccount) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	for _, sa := range seeds {
		a := &wallet.Account{
			Username:     sa.Username,
			PasswordHash: string(hash),
			Avatar:       DefaultAvatar,
			Role:         sa.Role,
			RealBalance:  sa.Balance,
		}
		err := s.accounts.CreateAccount(ctx, a)
		if errors.Is(err, wallet.ErrUsernameTaken) {
			continue
		}
		if err != nil {
			return err
		}
		log.Printf("Seeded account: user=%s role=%s", a.Username, a.Role)
	}
	return nil
}
