// Package authtest creates users and tokens for handler tests.
package authtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"recipehub/internal/auth"
)

var Tokens = auth.TokenService{
	Secret:   []byte("test-secret"),
	Issuer:   "recipehub-test",
	Duration: time.Hour,
}

// Password is the plaintext password of every user made by CreateUser.
const Password = "password123"

// CreateUser inserts a user and returns it with a signed token.
func CreateUser(tb testing.TB, repo *auth.Repo, username string) (*auth.User, string) {
	tb.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("hash password: %v", err)
	}
	u := auth.User{
		ID:           uuid.NewString(),
		Email:        username + "@example.test",
		Username:     username,
		FirstName:    "First",
		LastName:     "Last",
		PasswordHash: string(hash),
		Role:         auth.RoleUser,
	}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		tb.Fatalf("create user %s: %v", username, err)
	}
	created, err := repo.GetByID(context.Background(), u.ID)
	if err != nil || created == nil {
		tb.Fatalf("reload user %s: %v", username, err)
	}
	token, _, err := Tokens.Sign(created)
	if err != nil {
		tb.Fatalf("sign token: %v", err)
	}
	return created, token
}

func Bearer(token string) string {
	return "Bearer " + token
}
