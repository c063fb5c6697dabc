package services

import (
	"context"
	"errors"
	"testing"

	"github.com/morhendos/padel-league/models"
)

func TestRegisterAndLogin(t *testing.T) {
	userRepo := newFakeUserRepo()
	service := NewAuthService(userRepo)

	user, err := service.Register(context.Background(), RegisterInput{
		Email:     "  Ana@Example.com ",
		FirstName: "Ana",
		LastName:  "López",
		Password:  "correct horse",
		Role:      "player",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "ana@example.com" {
		t.Errorf("email %q, want normalized lowercase", user.Email)
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked in response")
	}

	logged, err := service.Login(context.Background(), "ana@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != user.ID {
		t.Errorf("logged in as %d, want %d", logged.ID, user.ID)
	}

	if _, err := service.Login(context.Background(), "ana@example.com", "wrong"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("wrong password: got err %v, want ErrAuthenticationFailed", err)
	}
	if _, err := service.Login(context.Background(), "nobody@example.com", "whatever"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("unknown email: got err %v, want ErrAuthenticationFailed", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	userRepo := newFakeUserRepo()
	service := NewAuthService(userRepo)

	if _, err := service.Register(context.Background(), RegisterInput{
		Email: "bad", Password: "long enough",
	}); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("bad email: got err %v, want ErrValidationFailed", err)
	}

	if _, err := service.Register(context.Background(), RegisterInput{
		Email: "ok@example.com", Password: "short",
	}); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("short password: got err %v, want ErrPasswordTooShort", err)
	}

	// Admin accounts cannot be self-provisioned.
	if _, err := service.Register(context.Background(), RegisterInput{
		Email: "root@example.com", Password: "long enough", Role: "admin",
	}); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("admin signup: got err %v, want ErrValidationFailed", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	userRepo := newFakeUserRepo()
	service := NewAuthService(userRepo)

	input := RegisterInput{Email: "dup@example.com", FirstName: "D", Password: "long enough"}
	if _, err := service.Register(context.Background(), input); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := service.Register(context.Background(), input); !errors.Is(err, ErrEmailConflict) {
		t.Errorf("got err %v, want ErrEmailConflict", err)
	}
}

func TestRegisterDefaultsToPlayerRole(t *testing.T) {
	userRepo := newFakeUserRepo()
	service := NewAuthService(userRepo)

	user, err := service.Register(context.Background(), RegisterInput{
		Email: "default@example.com", FirstName: "D", Password: "long enough",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Role != models.RolePlayer {
		t.Errorf("role %q, want player default", user.Role)
	}
}
