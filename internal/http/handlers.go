/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sakarnDev/jira-worklog/internal/adapters/jira"
	"github.com/sakarnDev/jira-worklog/internal/config"
	"github.com/sakarnDev/jira-worklog/internal/domain"
	"github.com/sakarnDev/jira-worklog/internal/services"
)

type aggregator interface {
	AggregateWorklogs(ctx context.Context, email string, win domain.TimeWindow) (*domain.AggregateResult, error)
}

type sessionStore interface {
	CreateSession(ctx context.Context, email string, ttl time.Duration) (domain.Session, error)
	FindSession(ctx context.Context, id string) (*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

type Handlers struct {
	cfg      config.Config
	log      zerolog.Logger
	svc      aggregator
	sessions sessionStore
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc aggregator, sessions sessionStore) *Handlers {
	return &Handlers{cfg: cfg, log: log, svc: svc, sessions: sessions}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Login exchanges a verified email for a session cookie. The caller proves
// itself with the shared gateway secret; the pipeline downstream trusts the
// session email without re-verification. Domain allow-listing happens here
// and only here.
func (h *Handlers) Login(c *gin.Context) {
	if h.cfg.GatewaySecret == "" || c.GetHeader("X-Gateway-Secret") != h.cfg.GatewaySecret {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}
	if !h.domainAllowed(email) {
		c.JSON(http.StatusForbidden, gin.H{"error": "email domain not allowed"})
		return
	}
	sess, err := h.sessions.CreateSession(c.Request.Context(), email, h.cfg.SessionTTL)
	if err != nil {
		h.log.Error().Err(err).Msg("create session failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session creation failed"})
		return
	}
	c.SetCookie(sessionCookieName, sess.ID, int(h.cfg.SessionTTL.Seconds()), "/", "", h.cfg.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"ok": true, "email": email})
}

func (h *Handlers) Logout(c *gin.Context) {
	if id, err := c.Cookie(sessionCookieName); err == nil && id != "" {
		_ = h.sessions.DeleteSession(c.Request.Context(), id)
	}
	c.SetCookie(sessionCookieName, "", -1, "/", "", h.cfg.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) domainAllowed(email string) bool {
	if len(h.cfg.AllowedEmailDomains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	dom := email[at+1:]
	for _, d := range h.cfg.AllowedEmailDomains {
		if strings.EqualFold(d, dom) {
			return true
		}
	}
	return false
}

// Worklogs is the dashboard gateway: parse the window params, run the
// pipeline, serialize. Accepts either a single date or a startDate/endDate
// pair; all absent defaults to today.
func (h *Handlers) Worklogs(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	date := strings.TrimSpace(c.Query("date"))
	startDate := strings.TrimSpace(c.Query("startDate"))
	endDate := strings.TrimSpace(c.Query("endDate"))
	single := date != "" || (startDate == "" && endDate == "")
	if date != "" {
		startDate, endDate = date, date
	}
	if endDate == "" {
		endDate = time.Now().Format("2006-01-02")
	}

	win, err := services.ResolveWindow(startDate, endDate, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.AggregateWorklogs(c.Request.Context(), email, win)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, jira.ErrNotConfigured) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	var userEmail any
	if res.UserEmail != "" {
		userEmail = res.UserEmail
	}
	summary := gin.H{"userEmail": userEmail, "totalSeconds": res.TotalSeconds}
	if single {
		summary["date"] = res.StartDate
	} else {
		summary["startDate"] = res.StartDate
		// the response echoes the inclusive end the caller asked for
		summary["endDate"] = endDate
	}
	entries := res.Entries
	if entries == nil {
		entries = []domain.WorklogEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "worklogs": entries})
}
