package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"novapos/internal/domain"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthManager gates the API behind a single operator account. The password
// is kept only as a bcrypt hash.
type AuthManager struct {
	secret       []byte
	tokenTTL     time.Duration
	email        string
	passwordHash string
}

type operatorClaims struct {
	jwtlib.RegisteredClaims
}

type operatorContextKey struct{}

func withOperator(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, email)
}

// OperatorFromContext returns the email of the authenticated operator.
func OperatorFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(operatorContextKey{}).(string)
	return email, ok
}

// NewAuthManager accepts the operator password either in plain text or as a
// bcrypt hash.
func NewAuthManager(secret string, tokenTTL time.Duration, email string, password string) (*AuthManager, error) {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	hash := password
	if !isPasswordHash(password) {
		hashed, err := hashPassword(password)
		if err != nil {
			return nil, err
		}
		hash = hashed
	}

	return &AuthManager{
		secret:       []byte(secret),
		tokenTTL:     tokenTTL,
		email:        strings.ToLower(strings.TrimSpace(email)),
		passwordHash: hash,
	}, nil
}

func (a *AuthManager) Login(req domain.LoginRequest) (domain.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	// Always run bcrypt so unknown emails cost the same as wrong passwords.
	valid := verifyPassword(a.passwordHash, req.Password)
	if email == "" || email != a.email || !valid {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(email, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Email:       email,
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (string, error) {
	claims := &operatorClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer("novapos"))
	if err != nil || !token.Valid {
		return "", errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub != a.email {
		return "", errors.New("invalid token subject")
	}
	return sub, nil
}

func (a *AuthManager) sign(email string, expiresAt time.Time) (string, error) {
	claims := operatorClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "novapos",
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
