package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"fundtracker/internal/auth"
	"fundtracker/internal/core"
	applog "fundtracker/internal/log"
)

const SessionCookie = "fundtracker_session"

type sessionKey struct{}

// SessionFromContext returns the session attached by the auth middleware.
func SessionFromContext(ctx context.Context) (auth.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(auth.Session)
	return sess, ok
}

func (s *Server) lookupSession(r *http.Request) (auth.Session, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return auth.Session{}, false
	}
	return s.sessions.Lookup(c.Value)
}

// requireSession sends browsers without a live session to the login
// page. HTMX requests get HX-Redirect so the whole page navigates.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.lookupSession(r)
		if !ok {
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/login")
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func (s *Server) requireAPISession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.lookupSession(r)
		if !ok {
			writeAPIError(w, core.NewError(core.KindUnauthorized, "login required", nil))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

type loginView struct {
	Error            string
	Username         string
	RequiresUsername bool
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.lookupSession(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", loginView{RequiresUsername: s.auth.RequiresUsername()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login.html", loginView{
			Error:            "Malformed request",
			RequiresUsername: s.auth.RequiresUsername(),
		})
		return
	}
	username := sanitizeInput(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")

	logger := applog.FromContext(r.Context())
	if err := s.auth.Check(username, password); err != nil {
		logger.WarnContext(r.Context(), "login rejected",
			applog.FieldOperation, applog.OpLogin,
			applog.FieldUser, username,
			applog.FieldErrorKind, string(core.KindOf(err)))
		msg := "Incorrect credentials"
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			msg = core.MessageOf(err)
		}
		s.render(w, r, http.StatusUnauthorized, "login.html", loginView{
			Error:            msg,
			Username:         username,
			RequiresUsername: s.auth.RequiresUsername(),
		})
		return
	}

	if username == "" {
		username = "admin"
	}
	sess := s.sessions.Login(username)
	http.SetCookie(w, s.sessionCookie(sess.ID, int(s.opts.SessionTTL.Seconds())))
	logger.InfoContext(r.Context(), "login accepted",
		applog.FieldOperation, applog.OpLogin,
		applog.FieldUser, username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := SessionFromContext(r.Context()); ok {
		s.sessions.Logout(sess.ID)
	}
	http.SetCookie(w, s.sessionCookie("", -1))
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// sessionCookie builds the session cookie; maxAge < 0 deletes it and 0
// makes it last for the browser session.
func (s *Server) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
