package secretstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

type vaultKV2Response struct {
	Data struct {
		Data map[string]interface{} `json:"data"`
	} `json:"data"`
}

type vaultKV1Response struct {
	Data map[string]interface{} `json:"data"`
}

func TestVaultSourceKV2(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/homelab/kener-secrets" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		payload := vaultKV2Response{}
		payload.Data.Data = map[string]interface{}{"DB_PASSWORD": "s3cr3t", "PORT": 5432}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	src, err := newVaultSource(ProviderConfig{
		Type:          "vault",
		Address:       server.URL,
		Token:         "token",
		Mount:         "secret",
		KVVersion:     2,
		SecretsPrefix: "homelab",
	})
	if err != nil {
		t.Fatalf("newVaultSource: %v", err)
	}
	got, err := src.FetchSecrets(context.Background(), "kener-secrets")
	if err != nil {
		t.Fatalf("FetchSecrets: %v", err)
	}
	want := map[string]string{"DB_PASSWORD": "s3cr3t", "PORT": "5432"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("secrets=%v, want %v", got, want)
	}
}

func TestVaultSourceKV1Params(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/kv/params/kener-config" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		payload := vaultKV1Response{}
		payload.Data = map[string]interface{}{"LOG_LEVEL": "info"}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	src, err := newVaultSource(ProviderConfig{
		Type:         "vault",
		Address:      server.URL,
		Token:        "token",
		Mount:        "kv",
		KVVersion:    1,
		ParamsPrefix: "params",
	})
	if err != nil {
		t.Fatalf("newVaultSource: %v", err)
	}
	got, err := src.FetchParams(context.Background(), "kener-config")
	if err != nil {
		t.Fatalf("FetchParams: %v", err)
	}
	if got["LOG_LEVEL"] != "info" {
		t.Fatalf("params=%v", got)
	}
}

func TestVaultSourceMissingPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	src, err := newVaultSource(ProviderConfig{Address: server.URL, Token: "token", KVVersion: 1})
	if err != nil {
		t.Fatalf("newVaultSource: %v", err)
	}
	if _, err := src.FetchSecrets(context.Background(), "absent"); err == nil {
		t.Fatalf("expected error for missing secret")
	}
}

func TestVaultSourceAppRoleLogin(t *testing.T) {
	logins := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/approle/login":
			logins++
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["role_id"] != "role" || body["secret_id"] != "secret" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"auth":{"client_token":"issued"}}`))
		case "/v1/secret/data/kener-secrets":
			if r.Header.Get("X-Vault-Token") != "issued" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			payload := vaultKV2Response{}
			payload.Data.Data = map[string]interface{}{"API_KEY": "abc"}
			_ = json.NewEncoder(w).Encode(payload)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	src, err := newVaultSource(ProviderConfig{Address: server.URL, RoleID: "role", SecretID: "secret"})
	if err != nil {
		t.Fatalf("newVaultSource: %v", err)
	}
	if err := src.Activate(context.Background()); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	got, err := src.FetchSecrets(context.Background(), "kener-secrets")
	if err != nil {
		t.Fatalf("FetchSecrets: %v", err)
	}
	if got["API_KEY"] != "abc" {
		t.Fatalf("secrets=%v", got)
	}
	if logins != 1 {
		t.Fatalf("logins=%d, want 1", logins)
	}
}

func TestVaultSourceRequiresAddress(t *testing.T) {
	t.Setenv("VAULT_ADDR", "")
	if _, err := newVaultSource(ProviderConfig{Token: "token"}); err == nil {
		t.Fatalf("expected error for missing address")
	}
}

func TestVaultLoginAppRoleValidation(t *testing.T) {
	_, err := newVaultLogin(ProviderConfig{
		AuthMethod: "approle",
		RoleID:     "role",
	})
	if err == nil {
		t.Fatalf("expected error for missing secretId")
	}
}

func TestVaultLoginAWSRequiresRole(t *testing.T) {
	_, err := newVaultLogin(ProviderConfig{
		AuthMethod: "aws",
	})
	if err == nil {
		t.Fatalf("expected error for missing awsRole")
	}
}

func TestVaultLoginTokenFromEnv(t *testing.T) {
	t.Setenv("VAULT_TOKEN", "from-env")
	cfg, err := newVaultLogin(ProviderConfig{})
	if err != nil {
		t.Fatalf("newVaultLogin: %v", err)
	}
	if cfg.method != vaultAuthToken || cfg.token != "from-env" || cfg.payload != nil {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestJoinVaultPath(t *testing.T) {
	cases := map[[2]string]string{
		{"", "app"}:          "app",
		{"homelab", "app"}:   "homelab/app",
		{"homelab", "/app/"}: "homelab/app",
		{"homelab", ""}:      "homelab",
	}
	for in, want := range cases {
		if got := joinVaultPath(in[0], in[1]); got != want {
			t.Fatalf("joinVaultPath(%q, %q)=%q, want %q", in[0], in[1], got, want)
		}
	}
}
