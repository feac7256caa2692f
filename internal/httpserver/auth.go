package httpserver

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Identity is the caller as resolved from the access-token cookie. Token
// issuing belongs to the auth service; this only reads the claims checkout
// needs: subject, email and role.
type Identity struct {
	UserID     uuid.UUID
	Email      string
	IsStaff    bool
	IsMerchant bool
}

const identityKey = "identity"

func GetIdentity(c echo.Context, jwtSecret []byte) (*Identity, error) {
	cookie, err := c.Cookie("accessToken")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing auth cookie")
	}
	tokenString := cookie.Value
	if tokenString == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "empty token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token: "+err.Error())
	}
	if !token.Valid {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
	}

	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return &Identity{
		UserID:     userID,
		Email:      email,
		IsStaff:    role == "staff" || role == "admin",
		IsMerchant: role == "merchant",
	}, nil
}

// RequireAuth resolves the identity once and stashes it on the context.
func RequireAuth(jwtSecret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := GetIdentity(c, jwtSecret)
			if err != nil {
				return err
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}

func identityFrom(c echo.Context) (*Identity, error) {
	id, ok := c.Get(identityKey).(*Identity)
	if !ok || id == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}
