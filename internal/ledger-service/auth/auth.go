// Package auth é o oráculo de autorização do serviço: transforma a requisição
// HTTP no engine.Caller (identidade + flag de admin) que acompanha cada comando.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/internal/ledger/engine"
)

// ErrUnauthenticated indica requisição sem credencial válida (HTTP 401).
var ErrUnauthenticated = errors.New("unauthenticated")

const RoleAdmin = "admin"

type Oracle interface {
	Caller(r *http.Request) (engine.Caller, error)
}

// Claims do token: sub é a identidade; role=admin concede privilégio de admin.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTOracle valida Bearer tokens HS256.
type JWTOracle struct {
	secret       []byte
	issuer       string
	adminSubject string
	now          func() time.Time
}

// NewJWT cria o oráculo. adminSubject (opcional) é tratado como admin mesmo sem role.
func NewJWT(secret, issuer, adminSubject string) (*JWTOracle, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &JWTOracle{secret: []byte(secret), issuer: issuer, adminSubject: adminSubject, now: time.Now}, nil
}

func (o *JWTOracle) Caller(r *http.Request) (engine.Caller, error) {
	raw := bearer(r)
	if raw == "" {
		return engine.Caller{}, ErrUnauthenticated
	}
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return o.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(o.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(o.now),
	)
	if err != nil {
		return engine.Caller{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	id := domain.Identity(c.Subject)
	if err := domain.ValidateIdentity(id); err != nil {
		return engine.Caller{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	admin := c.Role == RoleAdmin || (o.adminSubject != "" && c.Subject == o.adminSubject)
	return engine.Caller{Identity: id, IsAdmin: admin}, nil
}

// Issue assina um token para subject (ferramentas locais e testes).
func (o *JWTOracle) Issue(subject, role string, ttl time.Duration) (string, error) {
	now := o.now()
	c := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    o.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(o.secret)
}

// bearer lê "Authorization: Bearer x" ou, para o websocket, ?access_token=x.
func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

// HeaderOracle confia em X-Caller-ID; admin exige X-Admin-Token igual ao configurado.
// Só para ambiente local, atrás de um gateway que já autenticou.
type HeaderOracle struct {
	AdminToken string
}

func (o HeaderOracle) Caller(r *http.Request) (engine.Caller, error) {
	id := domain.Identity(r.Header.Get("X-Caller-ID"))
	if err := domain.ValidateIdentity(id); err != nil {
		return engine.Caller{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	tok := r.Header.Get("X-Admin-Token")
	admin := o.AdminToken != "" && subtle.ConstantTimeCompare([]byte(tok), []byte(o.AdminToken)) == 1
	return engine.Caller{Identity: id, IsAdmin: admin}, nil
}

type ctxKey struct{}

// WithCaller guarda o caller no contexto da requisição.
func WithCaller(ctx context.Context, c engine.Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func FromContext(ctx context.Context) (engine.Caller, bool) {
	c, ok := ctx.Value(ctxKey{}).(engine.Caller)
	return c, ok
}

// Middleware resolve o caller e o injeta no contexto; onErr escreve a resposta de falha.
func Middleware(o Oracle, onErr func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := o.Caller(r)
			if err != nil {
				onErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), c)))
		})
	}
}
