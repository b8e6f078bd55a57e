package vault

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/vault/api"

	"github.com/alexadamm/keyops-vault-go/pkg/keyid"
	"github.com/alexadamm/keyops-vault-go/pkg/keyops"
)

// ciphertextPrefix is the formatted-ciphertext marker the engine emits on
// encrypt and wrap: vault:v{N}:{base64}. The version segment names the key
// version that produced the ciphertext, so decrypt and unwrap never send
// an explicit key_version.
const ciphertextPrefix = "vault:v"

// Client is the standard-vault implementation of keyops.KeyOperations.
type Client struct {
	client *api.Client

	// session correlates all calls made through this client instance.
	session string
}

// Config holds configuration for the standard-vault client
type Config struct {
	// Address is the vault server address
	Address string

	// Token is the authentication token
	Token string

	// CACert is an optional path to a PEM CA bundle for TLS verification
	CACert string

	// Timeout bounds each backend call. Zero keeps the client default.
	Timeout time.Duration
}

// New creates a new standard-vault client
func New(config Config) (*Client, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("vault address is required")
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = config.Address
	if config.Timeout > 0 {
		vaultConfig.Timeout = config.Timeout
	}
	if config.CACert != "" {
		if err := vaultConfig.ConfigureTLS(&api.TLSConfig{CACert: config.CACert}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(config.Token)

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

// Decrypt decrypts formatted ciphertext produced by Encrypt. The version
// parameter is dropped: the key version travels in the ciphertext prefix.
func (c *Client) Decrypt(ctx context.Context, container, key, _ string, payload []byte, algorithm string) (*keyops.Result, error) {
	return c.unprotect(ctx, "decrypt", container, key, payload, algorithm)
}

// WrapKey wraps key material under the named key.
func (c *Client) WrapKey(ctx context.Context, container, key, version string, payload []byte, algorithm string) (*keyops.Result, error) {
	return c.protect(ctx, "wrap", container, key, version, payload, algorithm)
}

// UnwrapKey unwraps formatted wrapped-key ciphertext produced by WrapKey.
// Like Decrypt, it takes the key version from the ciphertext prefix.
func (c *Client) UnwrapKey(ctx context.Context, container, key, _ string, payload []byte, algorithm string) (*keyops.Result, error) {
	return c.unprotect(ctx, "unwrap", container, key, payload, algorithm)
}

// protect handles the two plaintext-consuming operations, encrypt and wrap.
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
	usedVersion, err := ciphertextVersion(ciphertext)
	if err != nil {
		return nil, err
	}

	return &keyops.Result{
		KeyID:     resultKeyID(container, key, usedVersion),
		RequestID: secret.RequestID,
		Data:      []byte(ciphertext),
	}, nil
}

// unprotect handles the two ciphertext-consuming operations, decrypt and
// unwrap. The payload bytes are the formatted ciphertext string; the key
// version comes from its prefix.
func (c *Client) unprotect(ctx context.Context, op, container, key string, payload []byte, algorithm string) (*keyops.Result, error) {
	if err := checkTarget(container, key); err != nil {
		return nil, err
	}

	ciphertext := string(payload)
	usedVersion, err := ciphertextVersion(ciphertext)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("%s/%s/%s", container, op, key)
	secret, err := c.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"ciphertext": ciphertext,
		"algorithm":  algorithm,
	})
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

// ciphertextVersion extracts the key version from formatted ciphertext.
func ciphertextVersion(ciphertext string) (string, error) {
	rest, ok := strings.CutPrefix(ciphertext, ciphertextPrefix)
	if !ok {
		return "", fmt.Errorf("malformed ciphertext: missing %q prefix", ciphertextPrefix)
	}
	version, _, ok := strings.Cut(rest, ":")
	if !ok || version == "" {
		return "", fmt.Errorf("malformed ciphertext: missing version segment")
	}
	return version, nil
}

func resultKeyID(container, key, version string) string {
	id := keyid.ID{Container: container, Name: key, Version: version}
	return id.String()
}
