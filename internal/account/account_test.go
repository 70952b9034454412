package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/suraksha-edu/suraksha/internal/account"
)

func newService(now *time.Time) *account.Service {
	opts := []account.Option{account.WithBcryptCost(bcrypt.MinCost), account.WithSessionTTL(time.Hour)}
	if now != nil {
		opts = append(opts, account.WithClock(func() time.Time { return *now }))
	}
	return account.NewService(account.NewMemoryStore(), opts...)
}

func student(email string) account.RegisterInput {
	return account.RegisterInput{
		Email:    email,
		Password: "correct horse",
		Role:     account.RoleStudent,
		Profile:  account.Profile{FullName: "Asha Verma", Institute: "GSSS Ludhiana", EnrollmentNumber: "EN-001"},
	}
}

func TestRegister_HashesAndNormalizes(t *testing.T) {
	svc := newService(nil)
	a, err := svc.Register(context.Background(), student("  Asha@School.EDU "))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if a.ID == "" {
		t.Error("ID is empty")
	}
	if a.Email != "asha@school.edu" {
		t.Errorf("Email = %q, want lowercased and trimmed", a.Email)
	}
	if string(a.PasswordHash) == "correct horse" {
		t.Fatal("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte("correct horse")); err != nil {
		t.Errorf("hash does not match password: %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*account.RegisterInput)
		field string
	}{
		{"bad email", func(in *account.RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"display name email", func(in *account.RegisterInput) { in.Email = "Asha <a@b.in>" }, "email"},
		{"short password", func(in *account.RegisterInput) { in.Password = "short" }, "password"},
		{"unknown role", func(in *account.RegisterInput) { in.Role = "admin" }, "role"},
		{"missing name", func(in *account.RegisterInput) { in.Profile.FullName = "  " }, "full_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := student("a@b.in")
			tt.edit(&in)
			_, err := newService(nil).Register(context.Background(), in)
			var ve *account.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Register() error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)
	if _, err := svc.Register(ctx, student("a@b.in")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Register(ctx, student("A@B.in")); !errors.Is(err, account.ErrEmailTaken) {
		t.Fatalf("second Register() error = %v, want ErrEmailTaken", err)
	}
}

func TestAuthenticateAndResolve(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newService(&now)
	a, _ := svc.Register(ctx, student("a@b.in"))

	if _, err := svc.Authenticate(ctx, "a@b.in", "wrong password"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@b.in", "correct horse"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v", err)
	}

	sess, err := svc.Authenticate(ctx, "A@B.IN", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if len(sess.Token) < 40 || sess.Role != account.RoleStudent {
		t.Errorf("session = %+v", sess)
	}
	if !sess.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", sess.ExpiresAt, now.Add(time.Hour))
	}

	got, err := svc.Resolve(ctx, sess.Token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("Resolve() = %s, want %s", got.ID, a.ID)
	}

	now = now.Add(time.Hour)
	if _, err := svc.Resolve(ctx, sess.Token); !errors.Is(err, account.ErrInvalidSession) {
		t.Errorf("expired Resolve() error = %v, want ErrInvalidSession", err)
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)
	_, _ = svc.Register(ctx, student("a@b.in"))
	sess, _ := svc.Authenticate(ctx, "a@b.in", "correct horse")

	svc.Logout(sess.Token)
	if _, err := svc.Resolve(ctx, sess.Token); !errors.Is(err, account.ErrInvalidSession) {
		t.Errorf("Resolve() after Logout error = %v", err)
	}
	svc.Logout("never-issued")
}

func TestStudents_ExcludesTeachers(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)
	_, _ = svc.Register(ctx, student("s1@b.in"))
	teacher := student("t@b.in")
	teacher.Role = account.RoleTeacher
	_, _ = svc.Register(ctx, teacher)
	_, _ = svc.Register(ctx, student("s2@b.in"))

	got, err := svc.Students(ctx)
	if err != nil {
		t.Fatalf("Students() error = %v", err)
	}
	if len(got) != 2 || got[0].Email != "s1@b.in" || got[1].Email != "s2@b.in" {
		t.Errorf("Students() = %+v", got)
	}
}
