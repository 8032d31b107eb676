package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func request(header, value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/v1/matches", nil)
	if header != "" {
		r.Header.Set(header, value)
	}
	return r
}

func TestJWTOracle(t *testing.T) {
	o, err := NewJWT("s3cret", "ledger", "ops")
	if err != nil {
		t.Fatal(err)
	}
	other, _ := NewJWT("other", "ledger", "")
	wrongIssuer, _ := NewJWT("s3cret", "someone-else", "")

	userTok, _ := o.Issue("U1", "", time.Hour)
	adminTok, _ := o.Issue("A", RoleAdmin, time.Hour)
	opsTok, _ := o.Issue("ops", "", time.Hour)
	expired, _ := o.Issue("U1", "", -time.Minute)
	forged, _ := other.Issue("U1", RoleAdmin, time.Hour)
	foreign, _ := wrongIssuer.Issue("U1", "", time.Hour)
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "U1", Issuer: "ledger"},
	}).SignedString([]byte("s3cret"))

	tests := []struct {
		name    string
		req     *http.Request
		id      string
		admin   bool
		wantErr bool
	}{
		{name: "user", req: request("Authorization", "Bearer "+userTok), id: "U1"},
		{name: "admin role", req: request("Authorization", "Bearer "+adminTok), id: "A", admin: true},
		{name: "admin subject", req: request("Authorization", "bearer "+opsTok), id: "ops", admin: true},
		{name: "query token", req: httptest.NewRequest(http.MethodGet, "/ws?access_token="+userTok, nil), id: "U1"},
		{name: "missing", req: request("", ""), wantErr: true},
		{name: "basic scheme", req: request("Authorization", "Basic abc"), wantErr: true},
		{name: "expired", req: request("Authorization", "Bearer "+expired), wantErr: true},
		{name: "wrong key", req: request("Authorization", "Bearer "+forged), wantErr: true},
		{name: "wrong issuer", req: request("Authorization", "Bearer "+foreign), wantErr: true},
		{name: "no expiry", req: request("Authorization", "Bearer "+noExp), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := o.Caller(tt.req)
			if tt.wantErr {
				if !errors.Is(err, ErrUnauthenticated) {
					t.Fatalf("err = %v, want unauthenticated", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if string(c.Identity) != tt.id || c.IsAdmin != tt.admin {
				t.Fatalf("caller = %+v", c)
			}
		})
	}
}

func TestNewJWTRequiresSecret(t *testing.T) {
	if _, err := NewJWT("", "x", ""); err == nil {
		t.Fatal("want error")
	}
}

func TestHeaderOracle(t *testing.T) {
	o := HeaderOracle{AdminToken: "letmein"}

	r := request("X-Caller-ID", "U1")
	c, err := o.Caller(r)
	if err != nil || c.Identity != "U1" || c.IsAdmin {
		t.Fatalf("caller = %+v err = %v", c, err)
	}

	r.Header.Set("X-Admin-Token", "letmein")
	if c, _ = o.Caller(r); !c.IsAdmin {
		t.Fatal("want admin")
	}
	r.Header.Set("X-Admin-Token", "nope")
	if c, _ = o.Caller(r); c.IsAdmin {
		t.Fatal("wrong token granted admin")
	}

	if _, err := o.Caller(request("", "")); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v", err)
	}

	// sem token configurado ninguém é admin
	r = request("X-Caller-ID", "U1")
	r.Header.Set("X-Admin-Token", "")
	if c, _ = (HeaderOracle{}).Caller(r); c.IsAdmin {
		t.Fatal("empty admin token granted admin")
	}
}

func TestMiddleware(t *testing.T) {
	var seen string
	h := Middleware(HeaderOracle{}, func(w http.ResponseWriter, _ *http.Request, err error) {
		http.Error(w, err.Error(), http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := FromContext(r.Context())
		seen = string(c.Identity)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request("X-Caller-ID", "U7"))
	if rec.Code != http.StatusOK || seen != "U7" {
		t.Fatalf("code = %d seen = %q", rec.Code, seen)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, request("", ""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", rec.Code)
	}
}
