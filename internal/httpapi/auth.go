package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/suraksha-edu/suraksha/internal/account"
)

type ctxKey struct{}

func withAccount(ctx context.Context, a account.Account) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// accountFrom returns the caller set by the auth middleware.
func accountFrom(ctx context.Context) account.Account {
	a, _ := ctx.Value(ctxKey{}).(account.Account)
	return a
}

// bearerToken reads the session token from the Authorization header, or
// from the token query parameter for websocket clients that cannot set
// headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func (s *Server) authed(next http.HandlerFunc) http.Handler {
	return s.requireRole("", next)
}

func (s *Server) student(next http.HandlerFunc) http.Handler {
	return s.requireRole(account.RoleStudent, next)
}

func (s *Server) teacher(next http.HandlerFunc) http.Handler {
	return s.requireRole(account.RoleTeacher, next)
}

// requireRole resolves the session token and, when role is set, rejects
// callers with a different role.
func (s *Server) requireRole(role account.Role, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, account.ErrInvalidSession)
			return
		}
		a, err := s.deps.Accounts.Resolve(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if role != "" && a.Role != role {
			writeError(w, r, errForbidden)
			return
		}
		next(w, r.WithContext(withAccount(r.Context(), a)))
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in account.RegisterInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.deps.Accounts.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.deps.Accounts.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Accounts.Logout(bearerToken(r))
	w.WriteHeader(http.StatusNoContent)
}
