package adminclient_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/canopy-pki/canopy/pkg/adminclient"
)

// fakeServer mimics the canopyd API surface the client talks to, counting
// token exchanges so caching behavior is observable.
type fakeServer struct {
	t           *testing.T
	secret      string
	tokenCalls  int
	lastAuth    string
	lastMethod  string
	lastPath    string
	lastPayload []byte
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/admin/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		f.tokenCalls++
		var req struct {
			Secret string `json:"secret"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Secret != f.secret {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid admin secret"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"token": "session-token", "expires_in": 3600})
	})

	mux.HandleFunc("/api/v1/issuers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		f.lastAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"issuer_ids": []int{1, 2}})
	})

	mux.HandleFunc("/api/v1/admin/", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		f.lastMethod = r.Method
		f.lastPath = r.URL.Path
		f.lastPayload, _ = io.ReadAll(r.Body)
		if f.lastAuth != "Bearer session-token" && f.lastAuth != "Bearer manual-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "missing bearer token"})
			return
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/admin/cas":
			json.NewEncoder(w).Encode(map[string]any{"cas": []string{"myca1"}})
		case r.URL.Path == "/api/v1/admin/cas/nope":
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "CA not found"})
		default:
			json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
		}
	})

	return mux
}

func newFake(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	f := &fakeServer{t: t, secret: "s3cret"}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return f, srv
}

func TestSecretExchange_cachesToken(t *testing.T) {
	f, srv := newFake(t)
	c := adminclient.New(srv.URL, adminclient.WithAdminSecret("s3cret"))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.ListCas(ctx); err != nil {
			t.Fatalf("ListCas: %v", err)
		}
	}
	if f.tokenCalls != 1 {
		t.Errorf("token exchanged %d times, want 1", f.tokenCalls)
	}
	if f.lastAuth != "Bearer session-token" {
		t.Errorf("Authorization = %q", f.lastAuth)
	}
}

func TestSecretExchange_wrongSecret(t *testing.T) {
	_, srv := newFake(t)
	c := adminclient.New(srv.URL, adminclient.WithAdminSecret("wrong"))

	if _, err := c.ListCas(context.Background()); err == nil {
		t.Fatal("wrong secret accepted")
	}
}

func TestWithToken_skipsExchange(t *testing.T) {
	f, srv := newFake(t)
	c := adminclient.New(srv.URL, adminclient.WithToken("manual-token"))

	if _, err := c.ListCas(context.Background()); err != nil {
		t.Fatalf("ListCas: %v", err)
	}
	if f.tokenCalls != 0 {
		t.Errorf("manual token still triggered %d exchanges", f.tokenCalls)
	}
	if f.lastAuth != "Bearer manual-token" {
		t.Errorf("Authorization = %q", f.lastAuth)
	}
}

func TestPublicEndpoints_unauthenticated(t *testing.T) {
	f, srv := newFake(t)
	c := adminclient.New(srv.URL) // no credentials at all

	ids, err := c.ListIssuers(context.Background())
	if err != nil {
		t.Fatalf("ListIssuers: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 {
		t.Errorf("issuer ids = %v", ids)
	}
	if f.lastAuth != "" {
		t.Errorf("public call carried Authorization %q", f.lastAuth)
	}
	if f.tokenCalls != 0 {
		t.Error("public call triggered a token exchange")
	}
}

func TestMutations_methodPathAndMessage(t *testing.T) {
	f, srv := newFake(t)
	c := adminclient.New(srv.URL, adminclient.WithToken("manual-token"))
	ctx := context.Background()

	msg, err := c.RevokeCa(ctx, "myca1", 1)
	if err != nil {
		t.Fatalf("RevokeCa: %v", err)
	}
	if msg != "ok" {
		t.Errorf("message = %q", msg)
	}
	if f.lastMethod != http.MethodPost || f.lastPath != "/api/v1/admin/cas/myca1/revoke" {
		t.Errorf("request = %s %s", f.lastMethod, f.lastPath)
	}
	if !strings.Contains(string(f.lastPayload), `"reason":1`) {
		t.Errorf("payload = %s", f.lastPayload)
	}

	if _, err := c.RemoveNamed(ctx, "profiles", "tls-server"); err != nil {
		t.Fatalf("RemoveNamed: %v", err)
	}
	if f.lastMethod != http.MethodDelete || f.lastPath != "/api/v1/admin/profiles/tls-server" {
		t.Errorf("request = %s %s", f.lastMethod, f.lastPath)
	}
}

func TestErrorEnvelope(t *testing.T) {
	_, srv := newFake(t)
	c := adminclient.New(srv.URL, adminclient.WithToken("manual-token"))

	_, err := c.GetCa(context.Background(), "nope")
	if err == nil {
		t.Fatal("missing CA reported as success")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "CA not found") {
		t.Errorf("error = %v, want status and server message", err)
	}
}
