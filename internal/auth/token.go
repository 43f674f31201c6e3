package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/thiagolins/pixbank-be/internal/models"
)

// ErrInvalidToken indicates a token that failed parsing or validation.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated principal carried by a session token. The
// routing fields are a snapshot of the linked account at issuance time;
// anything needing live account status must consult the account store, not
// this value.
type Identity struct {
	UserID        int64
	Name          string
	Document      string
	Email         string
	BankNumber    string
	AgencyNumber  string
	AgencyDigit   string
	AccountNumber string
	AccountDigit  string
}

// TokenManager issues and verifies signed JWTs for authenticated users.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Generate issues a signed JWT embedding the user and the account routing
// tuple at the time of login.
func (t *TokenManager) Generate(user models.User, account models.LinkedAccount) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":           t.issuer,
		"sub":           strconv.FormatInt(user.ID, 10),
		"name":          user.Name,
		"document":      user.Document,
		"email":         user.Email,
		"bankNumber":    account.BankNumber,
		"agencyNumber":  account.AgencyNumber,
		"agencyDigit":   account.AgencyDigit,
		"accountNumber": account.AccountNumber,
		"accountDigit":  account.AccountDigit,
		"iat":           now.Unix(),
		"nbf":           now.Unix(),
		"exp":           now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates the token signature and expiry and rebuilds the identity
// snapshot embedded in its claims.
func (t *TokenManager) Parse(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		UserID:        userID,
		Name:          stringClaim(claims, "name"),
		Document:      stringClaim(claims, "document"),
		Email:         stringClaim(claims, "email"),
		BankNumber:    stringClaim(claims, "bankNumber"),
		AgencyNumber:  stringClaim(claims, "agencyNumber"),
		AgencyDigit:   stringClaim(claims, "agencyDigit"),
		AccountNumber: stringClaim(claims, "accountNumber"),
		AccountDigit:  stringClaim(claims, "accountDigit"),
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
