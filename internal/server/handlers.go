package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blacktop/postkit/internal/logutil"
	"github.com/blacktop/postkit/internal/oauth"
	"github.com/blacktop/postkit/internal/publish"
	"github.com/gin-gonic/gin"
)

const stateCookie = "oauth_state"

func platformParam(c *gin.Context) (publish.Platform, bool) {
	p, err := publish.ParsePlatform(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return "", false
	}
	return p, true
}

// authorize redirects the browser to the platform's consent screen.
func (s *Server) authorize(c *gin.Context) {
	platform, ok := platformParam(c)
	if !ok {
		return
	}
	if s.deps.OAuth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "oauth is not configured"})
		return
	}

	state := oauth.NewState()
	authURL, err := s.deps.OAuth.AuthCodeURL(platform, state)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.SetCookie(stateCookie, state, 300, "/", "", false, true)
	logutil.Debugf("redirecting to %s authorization", platform)
	c.Redirect(http.StatusFound, authURL)
}

type callbackRequest struct {
	Code        string `json:"code" form:"code"`
	RedirectURI string `json:"redirect_uri" form:"redirect_uri"`
	UserID      string `json:"user_id" form:"user_id"`
	State       string `json:"state" form:"state"`
}

// callback exchanges an authorization code and returns the raw token JSON.
func (s *Server) callback(c *gin.Context) {
	platform, ok := platformParam(c)
	if !ok {
		return
	}
	if s.deps.OAuth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "oauth is not configured"})
		return
	}

	var req callbackRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}
	if req.Code == "" {
		req.Code = c.Query("code")
	}
	if req.RedirectURI == "" {
		req.RedirectURI = c.Query("redirect_uri")
	}
	if req.State == "" {
		req.State = c.Query("state")
	}
	if req.Code == "" || req.RedirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}
	// The cookie only exists when the flow started at authorize; front ends
	// that build the authorize URL themselves send no cookie and skip this.
	if want, err := c.Cookie(stateCookie); err == nil && want != "" {
		if subtle.ConstantTimeCompare([]byte(want), []byte(req.State)) != 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state"})
			return
		}
		c.SetCookie(stateCookie, "", -1, "/", "", false, true)
	}

	raw, err := s.deps.OAuth.Exchange(c.Request.Context(), platform, req.Code, req.RedirectURI)
	if err != nil {
		_ = c.Error(err)
		var xerr *oauth.ExchangeError
		if errors.As(err, &xerr) && len(xerr.Body) > 0 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": xerr.Body})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if req.UserID != "" && s.deps.Store != nil {
		s.saveToken(c, platform, req.UserID, raw)
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (s *Server) saveToken(c *gin.Context, platform publish.Platform, userID string, raw json.RawMessage) {
	token, err := oauth.AccessToken(raw)
	if err != nil {
		logutil.Warnf("%s token not saved: %v", platform, err)
		return
	}
	creds := publish.NewCredentials(platform, token, "", "")
	if err := s.deps.Store.Save(c.Request.Context(), userID, creds); err != nil {
		logutil.Warnf("%s token not saved: %v", platform, err)
		return
	}
	logutil.Infof("saved %s credentials for user %s", platform, userID)
}

// organizationACLs proxies LinkedIn's admin ACL lookup for the front end.
func (s *Server) organizationACLs(c *gin.Context) {
	token := c.Query("access_token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Access token is required"})
		return
	}
	if s.deps.LinkedIn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "linkedin is not configured"})
		return
	}

	raw, err := s.deps.LinkedIn.AdminACLs(c.Request.Context(), token)
	if err != nil {
		_ = c.Error(err)
		status := publish.StatusCode(err)
		if status == 0 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

type publishRequest struct {
	UserID    string         `json:"user_id" binding:"required"`
	Posts     []publish.Post `json:"posts" binding:"required,min=1"`
	Platforms []string       `json:"platforms"`
	Simulate  bool           `json:"simulate"`
}

type publishResponse struct {
	RunID     string                              `json:"runId"`
	Simulated bool                                `json:"simulated"`
	Results   map[publish.Platform]publish.Result `json:"results"`
	Entries   []publish.Result                    `json:"entries"`
}

// publish runs one batch and reports per-platform outcomes. Platform
// failures are part of a 200 response, never an HTTP error.
func (s *Server) publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	platforms := make([]publish.Platform, 0, len(req.Platforms))
	for _, raw := range req.Platforms {
		p, err := publish.ParsePlatform(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		platforms = append(platforms, p)
	}

	orc := s.deps.Orchestrator
	if req.Simulate {
		orc = s.deps.Simulation
	}
	if orc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "publishing is not configured"})
		return
	}

	report := orc.Run(c.Request.Context(), publish.Request{
		UserID:    req.UserID,
		Posts:     req.Posts,
		Platforms: platforms,
	})

	c.JSON(http.StatusOK, publishResponse{
		RunID:     report.RunID,
		Simulated: req.Simulate,
		Results:   report.ByPlatform(),
		Entries:   report.Results,
	})
}
