package federation

import (
	"testing"

	"github.com/google/uuid"

	"github.com/fedgate/fedgate/internal/store/core"
)

func testAssertion() *ExternalLoginAssertion {
	return &ExternalLoginAssertion{
		Provider:    ProviderGitHub,
		ProviderKey: "gh-42",
		RawClaims: map[string]string{
			ClaimProvider:    "github",
			ClaimProviderKey: "gh-42",
			ClaimEmail:       "raw@example.com",
			ClaimName:        "Raw Name",
			ClaimAvatarURL:   "https://avatars.example/raw.png",
		},
	}
}

func TestRegisteredExternal_MapClaims(t *testing.T) {
	user := &core.User{
		ID:            uuid.New(),
		Email:         "local@example.com",
		FullName:      "Local Name",
		AvatarURL:     "https://avatars.example/local.png",
		EmailVerified: true,
	}
	m := &RegisteredExternal{User: user, Login: testAssertion()}

	cs, err := m.MapClaims()
	if err != nil {
		t.Fatal(err)
	}

	// Identity comes from the local record, not the assertion.
	if got := cs.Get(ClaimSubject); got != user.ID.String() {
		t.Fatalf("sub = %q", got)
	}
	if got := cs.Get(ClaimEmail); got != "local@example.com" {
		t.Fatalf("email = %q, assertion must not win", got)
	}
	if got := cs.Get(ClaimName); got != "Local Name" {
		t.Fatalf("name = %q", got)
	}
	if got := cs.Get(ClaimRegistered); got != "true" {
		t.Fatalf("registered = %q", got)
	}
	if got := cs.Get(ClaimProvider); got != "github" {
		t.Fatalf("provider annotation = %q", got)
	}
	if got := cs.Get(ClaimProviderKey); got != "gh-42" {
		t.Fatalf("provider key = %q", got)
	}
}

func TestRegisteredExternal_RequiresBothInputs(t *testing.T) {
	if _, err := (&RegisteredExternal{Login: testAssertion()}).MapClaims(); err == nil {
		t.Fatal("expected error without user")
	}
	if _, err := (&RegisteredExternal{User: &core.User{}}).MapClaims(); err == nil {
		t.Fatal("expected error without assertion")
	}
}

func TestNotRegisteredExternal_MapClaims(t *testing.T) {
	m := &NotRegisteredExternal{Login: testAssertion()}

	cs, err := m.MapClaims()
	if err != nil {
		t.Fatal(err)
	}

	// No local user exists yet, so the subject is provider-scoped.
	if got := cs.Get(ClaimSubject); got != "github:gh-42" {
		t.Fatalf("sub = %q", got)
	}
	if got := cs.Get(ClaimEmail); got != "raw@example.com" {
		t.Fatalf("email = %q", got)
	}
	if got := cs.Get(ClaimRegistered); got != "false" {
		t.Fatalf("registered = %q", got)
	}
}

func TestNotRegisteredExternal_RequiresAssertion(t *testing.T) {
	if _, err := (&NotRegisteredExternal{}).MapClaims(); err == nil {
		t.Fatal("expected error without assertion")
	}
}
