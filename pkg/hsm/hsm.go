package hsm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/vault/api"

	"github.com/alexadamm/keyops-vault-go/pkg/keyid"
	"github.com/alexadamm/keyops-vault-go/pkg/keyops"
)

// Client is the dedicated-cluster implementation of keyops.KeyOperations.
type Client struct {
	client  *api.Client
	session string
}

// Config holds configuration for the dedicated-cluster client
type Config struct {
	// Address is the cluster address. Must be https.
	Address string

	// Namespace scopes every call; dedicated clusters require one.
	Namespace string

	// Token is the authentication token
	Token string

	// CACert is an optional path to a PEM CA bundle for TLS verification
	CACert string

	// ClientCert and ClientKey are optional paths to a client certificate
	// pair for mutual TLS.
	ClientCert string
	ClientKey  string

	// Timeout bounds each backend call. Zero keeps the client default.
	Timeout time.Duration
}

// New creates a new dedicated-cluster client
func New(config Config) (*Client, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("hsm address is required")
	}
	if !strings.HasPrefix(config.Address, "https://") {
		return nil, fmt.Errorf("hsm address must use https: %s", config.Address)
	}
	if config.Namespace == "" {
		return nil, fmt.Errorf("hsm namespace is required")
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = config.Address
	if config.Timeout > 0 {
		vaultConfig.Timeout = config.Timeout
	}
	if config.CACert != "" || config.ClientCert != "" {
		tls := &api.TLSConfig{
			CACert:     config.CACert,
			ClientCert: config.ClientCert,
			ClientKey:  config.ClientKey,
		}
		if err := vaultConfig.ConfigureTLS(tls); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create hsm client: %w", err)
	}

	client.SetToken(config.Token)
	client.SetNamespace(config.Namespace)

	session := uuid.NewString()
	client.AddHeader("X-Session-ID", session)

	return &Client{
		client:  client,
		session: session,
	}, nil
}

// Encrypt encrypts payload under the named key.
func (c *Client) Encrypt(ctx context.Context, container, key, version string, payload []byte, algorithm string) (*keyops.Result, error) {
	return c.protect(ctx, "encrypt", container, key, version, payload, algorithm)
}

// Decrypt decrypts raw ciphertext bytes produced by Encrypt.
func (c *Client) Decrypt(ctx context.Context, container, key, version string, payload []byte, algorithm string) (*keyops.Result, error) {
	return c.unprotect(ctx, "decrypt", container, key, version, payload, algorithm)
}

// WrapKey wraps key material under the named key.
func (c *Client) WrapKey(ctx context.Context, container, key, version string, payload []byte, algorithm string) (*keyops.Result, error) {
	return c.protect(ctx, "wrap", container, key, version, payload, algorithm)
}

// UnwrapKey unwraps raw wrapped-key bytes produced by WrapKey.
func (c *Client) UnwrapKey(ctx context.Context, container, key, version string, payload []byte, algorithm string) (*keyops.Result, error) {
	return c.unprotect(ctx, "unwrap", container, key, version, payload, algorithm)
}

func (c *Client) protect(ctx context.Context, op, container, key, version string, payload []byte, algorithm string) (*keyops.Result, error) {
	if err := checkTarget(container, key); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"plaintext": base64.StdEncoding.EncodeToString(payload),
		"algorithm": algorithm,
	}
	if version != "" {
		data["key_version"] = version
	}

	path := fmt.Sprintf("%s/%s/%s", container, op, key)
	secret, err := c.client.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return nil, err
	}
	if secret == nil {
		return nil, fmt.Errorf("no response from %s", path)
	}

	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid ciphertext format in response from %s", path)
	}
	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	usedVersion, err := responseVersion(secret)
	if err != nil {
		return nil, err
	}

	return &keyops.Result{
		KeyID:     resultKeyID(container, key, usedVersion),
		RequestID: secret.RequestID,
		Data:      decoded,
	}, nil
}

func (c *Client) unprotect(ctx context.Context, op, container, key, version string, payload []byte, algorithm string) (*keyops.Result, error) {
	if err := checkTarget(container, key); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"ciphertext": base64.StdEncoding.EncodeToString(payload),
		"algorithm":  algorithm,
	}
	if version != "" {
		data["key_version"] = version
	}

	path := fmt.Sprintf("%s/%s/%s", container, op, key)
	secret, err := c.client.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return nil, err
	}
	if secret == nil {
		return nil, fmt.Errorf("no response from %s", path)
	}

	plaintext, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid plaintext format in response from %s", path)
	}
	decoded, err := base64.StdEncoding.DecodeString(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode plaintext: %w", err)
	}
	usedVersion, err := responseVersion(secret)
	if err != nil {
		return nil, err
	}

	return &keyops.Result{
		KeyID:     resultKeyID(container, key, usedVersion),
		RequestID: secret.RequestID,
		Data:      decoded,
	}, nil
}

func checkTarget(container, key string) error {
	if container == "" {
		return fmt.Errorf("container name is required")
	}
	if key == "" {
		return fmt.Errorf("key name is required")
	}
	return nil
}

// responseVersion reads the key_version field dedicated clusters report on
// every operation response.
func responseVersion(secret *api.Secret) (string, error) {
	switch v := secret.Data["key_version"].(type) {
	case json.Number:
		return v.String(), nil
	case string:
		if v == "" {
			return "", fmt.Errorf("empty key_version in response")
		}
		return v, nil
	default:
		return "", fmt.Errorf("missing key_version in response")
	}
}

func resultKeyID(container, key, version string) string {
	id := keyid.ID{HSM: true, Container: container, Name: key, Version: version}
	return id.String()
}
