package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/models"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/middleware"
)

// claimsToken exposes an already-decoded claim set through middleware.Token.
type claimsToken struct {
	claims map[string]interface{}
}

func (t *claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// HS256Verifier validates tokens signed with a shared secret, the format
// IssueToken produces for service accounts and tests.
type HS256Verifier struct {
	secret []byte
}

func NewHS256Verifier(secret string) *HS256Verifier {
	return &HS256Verifier{secret: []byte(secret)}
}

func (v *HS256Verifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if _, ok := claims["exp"]; !ok {
		return nil, errors.New("token has no exp claim")
	}
	return &claimsToken{claims: claims}, nil
}

// IssueToken creates a signed HS256 access token for u.
func IssueToken(secret string, u *models.User, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   u.Sub,
		"name":  u.Name,
		"email": u.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// InsecureVerifier decodes the payload without checking the signature.
// Only for local/integration runs under explicit opt-in.
type InsecureVerifier struct{}

func NewInsecureVerifier() *InsecureVerifier { return &InsecureVerifier{} }

func (v *InsecureVerifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	claims, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}
	return &claimsToken{claims: claims}, nil
}

func decodePayload(raw string) (map[string]interface{}, error) {
	parts := strings.Split(raw, ".")
	if len(parts) < 2 {
		return nil, errors.New("invalid token format")
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}
	var claims map[string]interface{}
	d := json.NewDecoder(strings.NewReader(string(b)))
	d.UseNumber()
	if err := d.Decode(&claims); err != nil {
		return nil, fmt.Errorf("decode token claims: %w", err)
	}
	return claims, nil
}

// ExpiryOf reads the exp claim without verifying the token. It is used to
// bound how long a revoked token has to stay on the revocation list.
func ExpiryOf(raw string) (time.Time, error) {
	claims, err := decodePayload(raw)
	if err != nil {
		return time.Time{}, err
	}
	v, ok := claims["exp"]
	if !ok {
		return time.Time{}, errors.New("exp claim not present")
	}
	n, ok := v.(json.Number)
	if !ok {
		return time.Time{}, fmt.Errorf("unsupported exp type %T", v)
	}
	if i, err := n.Int64(); err == nil {
		return time.Unix(i, 0), nil
	}
	f, err := n.Float64()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(f), 0), nil
}
