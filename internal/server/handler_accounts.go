package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/monitor"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// checkbox decodes true, false, "on", "true" and "1"
type checkbox bool

func (b *checkbox) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = checkbox(t)
	case string:
		switch strings.ToLower(t) {
		case "on", "true", "1":
			*b = true
		default:
			*b = false
		}
	case float64:
		*b = t != 0
	default:
		*b = false
	}
	return nil
}

type accountRequest struct {
	User   string      `json:"user"`
	Pass   string      `json:"pass"`
	Host   string      `json:"host"`
	Port   json.Number `json:"port"`
	Secure checkbox    `json:"secure"`
}

func (r accountRequest) account() (models.MonitoredAccount, error) {
	account := models.MonitoredAccount{
		Address:  strings.TrimSpace(r.User),
		Password: r.Pass,
		Host:     strings.TrimSpace(r.Host),
		UseTLS:   bool(r.Secure),
	}
	if r.Port != "" {
		port, err := strconv.Atoi(r.Port.String())
		if err != nil || port <= 0 || port > 65535 {
			return account, errors.New("invalid port")
		}
		account.Port = port
	}
	return account, nil
}

type modeRequest struct {
	Mode              models.Mode `json:"mode"`
	MailgunSigningKey *string     `json:"mailgunSigningKey"`
}

type AccountHandler struct {
	monitor Monitor
	logger  *slog.Logger
}

func NewAccountHandler(m Monitor, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		monitor: m,
		logger:  logger.With("component", "accounts_api"),
	}
}

// List handles GET /api/accounts
func (h *AccountHandler) List(c *gin.Context) {
	settings := h.monitor.Settings()
	c.JSON(http.StatusOK, gin.H{
		"mode":           settings.Mode,
		"monitoredEmail": settings.MonitoredEmail,
		"accounts":       h.monitor.Accounts(),
	})
}

// Upsert handles POST /api/accounts
func (h *AccountHandler) Upsert(c *gin.Context) {
	account, ok := h.bindAccount(c)
	if !ok {
		return
	}

	if err := h.monitor.UpsertAccount(c.Request.Context(), account); err != nil {
		h.fail(c, "failed to save account", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Remove handles DELETE /api/accounts/:email
func (h *AccountHandler) Remove(c *gin.Context) {
	address := c.Param("email")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Faltan datos"})
		return
	}

	if err := h.monitor.RemoveAccount(c.Request.Context(), address); err != nil {
		h.fail(c, "failed to remove account", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetMode handles POST /api/settings/mode
func (h *AccountHandler) SetMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.monitor.SetMode(c.Request.Context(), req.Mode, req.MailgunSigningKey); err != nil {
		h.fail(c, "failed to set mode", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// TestConnection handles POST /api/test-connection
func (h *AccountHandler) TestConnection(c *gin.Context) {
	account, ok := h.bindAccount(c)
	if !ok {
		return
	}

	if err := h.monitor.TestConnection(c.Request.Context(), account); err != nil {
		if errors.Is(err, monitor.ErrInvalidAccount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Info("connection test failed", "email", account.Address, "error", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// bindAccount decodes an account request, answering 400 when fields are missing
func (h *AccountHandler) bindAccount(c *gin.Context) (models.MonitoredAccount, bool) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return models.MonitoredAccount{}, false
	}

	if strings.TrimSpace(req.User) == "" || req.Pass == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Faltan datos"})
		return models.MonitoredAccount{}, false
	}

	account, err := req.account()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.MonitoredAccount{}, false
	}
	return account, true
}

// fail maps monitor errors to responses
func (h *AccountHandler) fail(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, monitor.ErrInvalidAccount), errors.Is(err, monitor.ErrInvalidMode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
