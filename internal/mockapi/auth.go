package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const accountKey = "mockapi.account"

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// IssueToken signs an access token for the named account. It is exported so
// tests can mint tokens without a login round trip.
func (s *Server) IssueToken(username string) (string, error) {
	acct, ok := s.account(username)
	if !ok {
		return "", fmt.Errorf("mockapi: unknown account %q", username)
	}
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acct.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role: acct.Role,
	})
	return tok.SignedString(s.secret)
}

func (s *Server) verify(raw string) (Account, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Account{}, err
	}
	acct, ok := s.account(c.Subject)
	if !ok {
		return Account{}, errors.New("unknown subject")
	}
	return acct, nil
}

func (s *Server) account(username string) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == username {
			return a, true
		}
	}
	return Account{}, false
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c)
			return
		}
		acct, err := s.verify(raw)
		if err != nil {
			unauthorized(c)
			return
		}
		c.Set(accountKey, acct)
		c.Next()
	}
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
}

func currentAccount(c *gin.Context) Account {
	v, _ := c.Get(accountKey)
	acct, _ := v.(Account)
	return acct
}

func (s *Server) login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{
			{"loc": []string{"body", "username"}, "msg": "field required", "type": "value_error.missing"},
		}})
		return
	}
	acct, ok := s.account(username)
	if !ok || acct.Password != password {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
		return
	}
	tok, err := s.IssueToken(acct.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": tok,
		"token_type":   "bearer",
		"user":         gin.H{"username": acct.Username, "role": acct.Role},
	})
}
