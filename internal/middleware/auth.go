package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Sayyed-Ali/MediSys/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys filled in by the auth middleware
const (
	CtxUserID   = "userID"
	CtxUserRole = "userRole"
)

// legacy clients send the raw token in this header
const legacyTokenHeader = "x-auth-token"

var (
	ErrNoToken      = errors.New("no token, authorization denied")
	ErrInvalidToken = errors.New("token is not valid")
)

// Claims is what a MediSys access token carries
type Claims struct {
	UserID string
	Role   string
}

// Auth verifies HS256 access tokens signed with the configured secret
type Auth struct {
	secret []byte

	// SecureCookies marks the access_token cookie Secure and SameSite=None,
	// needed when the frontend is served from another origin over HTTPS.
	SecureCookies bool
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// ParseToken validates tokenString and extracts the subject and role
func (a *Auth) ParseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{UserID: sub, Role: role}, nil
}

// SetTokenCookie stores the access token as an HttpOnly cookie
func (a *Auth) SetTokenCookie(c *gin.Context, token string, ttl time.Duration) {
	a.setCookie(c, token, int(ttl.Seconds()))
}

// ClearTokenCookie removes the access_token cookie
func (a *Auth) ClearTokenCookie(c *gin.Context) {
	a.setCookie(c, "", -1)
}

func (a *Auth) setCookie(c *gin.Context, value string, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if a.SecureCookies {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", value, maxAge, "/", "", a.SecureCookies, true)
}

// tokenFromRequest tries the access_token cookie, then x-auth-token, then a Bearer header
func tokenFromRequest(c *gin.Context) string {
	if tok, err := c.Cookie("access_token"); err == nil && tok != "" {
		return tok
	}
	if tok := strings.TrimSpace(c.GetHeader(legacyTokenHeader)); tok != "" {
		return tok
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// Authenticated accepts any valid token regardless of role
func (a *Auth) Authenticated() gin.HandlerFunc {
	return a.RequireRole()
}

// RequireRole validates the token and checks the caller's role against allowedRoles.
// With no roles given every authenticated caller passes.
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := a.ParseToken(tokenFromRequest(c))
		if err != nil {
			msg := "Token is not valid"
			if errors.Is(err, ErrNoToken) {
				msg = "No token, authorization denied"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, msg))
			return
		}

		if len(allowedRoles) > 0 && !hasRole(claims.Role, allowedRoles) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: Insufficient permissions"))
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUserRole, claims.Role)

		c.Next()
	}
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
