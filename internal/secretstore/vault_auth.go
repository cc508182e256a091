package secretstore

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

const (
	vaultAuthToken   = "token"
	vaultAuthAppRole = "approle"
	vaultAuthAWS     = "aws"
)

const stsBody = "Action=GetCallerIdentity&Version=2011-06-15"

// vaultLogin is the resolved authentication for one vault source. Token auth
// carries the token; every other method builds a login payload on demand and
// posts it to auth/<mount>/login.
type vaultLogin struct {
	method  string
	mount   string
	token   string
	payload func(context.Context) (map[string]any, error)
}

func newVaultLogin(cfg ProviderConfig) (vaultLogin, error) {
	method, err := vaultAuthMethod(cfg)
	if err != nil {
		return vaultLogin{}, err
	}
	login := vaultLogin{method: method, mount: strings.Trim(strings.TrimSpace(cfg.AuthMount), "/")}
	if login.mount == "" && method != vaultAuthToken {
		login.mount = method
	}

	switch method {
	case vaultAuthToken:
		login.token = strings.TrimSpace(cfg.Token)
		if login.token == "" && strings.TrimSpace(cfg.AuthMethod) == "" {
			login.token = strings.TrimSpace(os.Getenv("VAULT_TOKEN"))
		}
		if login.token == "" {
			return vaultLogin{}, fmt.Errorf("vault token is required (set token or VAULT_TOKEN)")
		}
	case vaultAuthAppRole:
		roleID, secretID := strings.TrimSpace(cfg.RoleID), strings.TrimSpace(cfg.SecretID)
		if roleID == "" || secretID == "" {
			return vaultLogin{}, fmt.Errorf("vault approle auth requires roleId and secretId")
		}
		login.payload = func(context.Context) (map[string]any, error) {
			return map[string]any{"role_id": roleID, "secret_id": secretID}, nil
		}
	case vaultAuthAWS:
		role := strings.TrimSpace(cfg.AWSRole)
		if role == "" {
			return vaultLogin{}, fmt.Errorf("vault aws auth requires awsRole")
		}
		region := firstNonEmpty(cfg.AWSRegion, os.Getenv("AWS_REGION"), os.Getenv("AWS_DEFAULT_REGION"))
		serverID := strings.TrimSpace(cfg.AWSHeaderValue)
		login.payload = func(ctx context.Context) (map[string]any, error) {
			return stsLoginPayload(ctx, role, region, serverID)
		}
	}
	return login, nil
}

// vaultAuthMethod normalizes authMethod, inferring it from the credentials
// present when unset.
func vaultAuthMethod(cfg ProviderConfig) (string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.AuthMethod)) {
	case "":
		switch {
		case strings.TrimSpace(cfg.Token) != "":
			return vaultAuthToken, nil
		case strings.TrimSpace(cfg.RoleID) != "" || strings.TrimSpace(cfg.SecretID) != "":
			return vaultAuthAppRole, nil
		case strings.TrimSpace(cfg.AWSRole) != "":
			return vaultAuthAWS, nil
		}
		return vaultAuthToken, nil
	case "token":
		return vaultAuthToken, nil
	case "approle", "app-role", "app_role":
		return vaultAuthAppRole, nil
	case "aws", "aws-iam", "iam":
		return vaultAuthAWS, nil
	default:
		return "", fmt.Errorf("unsupported vault auth method %q", cfg.AuthMethod)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ensureAuth logs in at most once per source.
func (v *vaultSource) ensureAuth(ctx context.Context) error {
	if v == nil {
		return fmt.Errorf("vault source is not initialized")
	}
	if v.login.payload == nil {
		return nil
	}
	v.authOnce.Do(func() {
		v.authErr = v.authenticate(ctx)
	})
	return v.authErr
}

func (v *vaultSource) authenticate(ctx context.Context) error {
	data, err := v.login.payload(ctx)
	if err != nil {
		return err
	}
	secret, err := v.client.Logical().WriteWithContext(ctx, "auth/"+v.login.mount+"/login", data)
	if err != nil {
		return fmt.Errorf("vault %s login: %w", v.login.method, err)
	}
	if secret == nil || secret.Auth == nil || strings.TrimSpace(secret.Auth.ClientToken) == "" {
		return fmt.Errorf("vault %s login returned no client token", v.login.method)
	}
	v.client.SetToken(secret.Auth.ClientToken)
	return nil
}

// stsLoginPayload signs an STS GetCallerIdentity request with the ambient AWS
// credentials, which vault's aws auth method replays to verify the caller.
func stsLoginPayload(ctx context.Context, role, region, serverID string) (map[string]any, error) {
	if region == "" {
		return nil, fmt.Errorf("aws region is required for vault auth (set awsRegion or AWS_REGION)")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve aws credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://sts.amazonaws.com/", strings.NewReader(stsBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	if serverID != "" {
		req.Header.Set("X-Vault-AWS-IAM-Server-ID", serverID)
	}
	sum := sha256.Sum256([]byte(stsBody))
	if err := v4.NewSigner().SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), "sts", region, time.Now()); err != nil {
		return nil, fmt.Errorf("sign sts request: %w", err)
	}

	headers := req.Header.Clone()
	headers.Set("Host", req.URL.Host)
	headerJSON, err := json.Marshal(headers)
	if err != nil {
		return nil, err
	}
	enc := base64.StdEncoding.EncodeToString
	return map[string]any{
		"role":                    role,
		"iam_http_request_method": req.Method,
		"iam_request_url":         enc([]byte(req.URL.String())),
		"iam_request_body":        enc([]byte(stsBody)),
		"iam_request_headers":     enc(headerJSON),
	}, nil
}
