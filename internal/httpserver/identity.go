package httpserver

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mkotelnikov/storefront/internal/cart"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"

	sessionCookie = "cart_session"
	roleAdmin     = "admin"
)

// userFromToken resolves the caller from the accessToken cookie. The
// core trusts whoever issued the token; no credentials are checked
// here.
func userFromToken(c echo.Context, secret []byte) (uuid.UUID, string, error) {
	cookie, err := c.Cookie("accessToken")
	if err != nil || cookie.Value == "" {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusUnauthorized, "missing auth cookie")
	}

	token, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
	}

	role, _ := claims["role"].(string)
	return userID, role, nil
}

func requireUser(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, role, err := userFromToken(c, secret)
			if err != nil {
				return err
			}
			c.Set(ctxUserID, userID)
			c.Set(ctxRole, role)
			return next(c)
		}
	}
}

func requireAdmin(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, role, err := userFromToken(c, secret)
			if err != nil {
				return err
			}
			if role != roleAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "admin only")
			}
			c.Set(ctxUserID, userID)
			c.Set(ctxRole, role)
			return next(c)
		}
	}
}

func currentUser(c echo.Context) uuid.UUID {
	if id, ok := c.Get(ctxUserID).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get(ctxRole).(string)
	return role == roleAdmin
}

// cartOwner resolves who owns the cart being touched: a logged-in user
// when a valid token is present, otherwise the anonymous session from
// the cart_session cookie, minting one on first use.
func cartOwner(c echo.Context, secret []byte) cart.Owner {
	if userID, _, err := userFromToken(c, secret); err == nil {
		return cart.UserOwner(userID)
	}

	if cookie, err := c.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cart.SessionOwner(cookie.Value)
	}

	sid := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
	})
	return cart.SessionOwner(sid)
}
