package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"jizhang/internal/auth"
	"jizhang/internal/core"
)

const (
	userKey           contextKey = "user"
	sessionCookieName            = "session"
)

// userFromContext retrieves the authenticated user set by requireAuth.
func userFromContext(r *http.Request) core.User {
	u, _ := r.Context().Value(userKey).(core.User)
	return u
}

// requireAuth guards a handler behind a valid session and implements
// rolling renewal: a session past the halfway point of its lifetime is
// extended on the next request, so active users stay logged in while
// idle sessions still expire.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		info, err := s.repo.ValidateSession(r.Context(), cookie.Value)
		if err != nil {
			s.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		if time.Until(info.ExpiresAt) < s.sessionDuration/2 {
			newExpiresAt := time.Now().Add(s.sessionDuration)
			if err := s.repo.RenewSession(r.Context(), cookie.Value, newExpiresAt); err == nil {
				s.setSessionCookie(w, cookie.Value)
			}
			// Renewal failure is not fatal; the current session still works
		}

		ctx := context.WithValue(r.Context(), userKey, info.User)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

type authView struct {
	Error string
	Email string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	// Already logged in users go straight to the app
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if _, err := s.repo.ValidateSession(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}
	s.render(w, r, "login.html", authView{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, "login.html", authView{Error: "请求格式不正确"})
		return
	}

	email := strings.ToLower(sanitizeInput(r.FormValue("email")))
	password := r.FormValue("password")

	if email == "" || password == "" {
		s.render(w, r, "login.html", authView{Error: "请输入邮箱和密码", Email: email})
		return
	}

	user, err := s.repo.GetUserByEmail(r.Context(), email)
	if err != nil || !auth.CheckPassword(password, user.PasswordHash) {
		s.render(w, r, "login.html", authView{Error: "邮箱或密码错误", Email: email})
		return
	}

	if err := s.startSession(w, r, user.ID); err != nil {
		slog.ErrorContext(r.Context(), "Failed to start session", "error", err, "user_id", user.ID)
		s.render(w, r, "login.html", authView{Error: "登录失败，请稍后再试", Email: email})
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "signup.html", authView{})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, "signup.html", authView{Error: "请求格式不正确"})
		return
	}

	email := strings.ToLower(sanitizeInput(r.FormValue("email")))
	password := r.FormValue("password")
	confirm := r.FormValue("confirm_password")

	if _, err := mail.ParseAddress(email); err != nil {
		s.render(w, r, "signup.html", authView{Error: "邮箱格式不正确", Email: email})
		return
	}
	if password != confirm {
		s.render(w, r, "signup.html", authView{Error: "两次输入的密码不一致", Email: email})
		return
	}
	if len(password) < auth.MinPasswordLength {
		s.render(w, r, "signup.html", authView{Error: "密码至少需要6个字符", Email: email})
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to hash password", "error", err)
		s.render(w, r, "signup.html", authView{Error: "注册失败，请稍后再试", Email: email})
		return
	}

	user, err := s.repo.CreateUser(r.Context(), email, hash)
	if err != nil {
		// Most likely the unique email constraint
		s.render(w, r, "signup.html", authView{Error: "该邮箱已被注册", Email: email})
		return
	}

	slog.InfoContext(r.Context(), "User registered", "user_id", user.ID)

	if err := s.startSession(w, r, user.ID); err != nil {
		slog.ErrorContext(r.Context(), "Failed to start session", "error", err, "user_id", user.ID)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if err := s.repo.DeleteSession(r.Context(), cookie.Value); err != nil {
			slog.ErrorContext(r.Context(), "Failed to delete session", "error", err)
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(s.sessionDuration)
	if err := s.repo.CreateSession(r.Context(), token, userID, expiresAt); err != nil {
		return err
	}
	s.setSessionCookie(w, token)
	return nil
}
