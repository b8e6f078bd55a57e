package keyops

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/alexadamm/keyops-vault-go/pkg/keyid"
	"github.com/alexadamm/keyops-vault-go/pkg/secret"
)

// backendCall records the arguments of one KeyOperations invocation.
type backendCall struct {
	op        string
	container string
	key       string
	version   string
	payload   []byte
	algorithm string
}

// mockBackend implements KeyOperations for testing. It records every call
// and answers with a canned result or error.
type mockBackend struct {
	calls []backendCall
	err   error
	data  []byte
}

func (m *mockBackend) record(op, container, key, version string, payload []byte, algorithm string) (*Result, error) {
	m.calls = append(m.calls, backendCall{
		op:        op,
		container: container,
		key:       key,
		version:   version,
		payload:   append([]byte(nil), payload...),
		algorithm: algorithm,
	})
	if m.err != nil {
		return nil, m.err
	}
	data := m.data
	if data == nil {
		data = []byte("backend-result")
	}
	return &Result{
		KeyID:     container + "/keys/" + key,
		RequestID: "req-1",
		Data:      data,
	}, nil
}

func (m *mockBackend) Encrypt(ctx context.Context, container, key, version string, payload []byte, algorithm string) (*Result, error) {
	return m.record("encrypt", container, key, version, payload, algorithm)
}

func (m *mockBackend) Decrypt(ctx context.Context, container, key, version string, payload []byte, algorithm string) (*Result, error) {
	return m.record("decrypt", container, key, version, payload, algorithm)
}

func (m *mockBackend) WrapKey(ctx context.Context, container, key, version string, payload []byte, algorithm string) (*Result, error) {
	return m.record("wrap", container, key, version, payload, algorithm)
}

func (m *mockBackend) UnwrapKey(ctx context.Context, container, key, version string, payload []byte, algorithm string) (*Result, error) {
	return m.record("unwrap", container, key, version, payload, algorithm)
}

func newTestInvoker(t *testing.T, vault, hsm KeyOperations) Invoker {
	t.Helper()
	inv, err := New(Config{Vault: vault, HSM: hsm})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return inv
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name     string
		hasText  bool
		hasBytes bool
		wantErr  error
	}{
		{"text only", true, false, nil},
		{"bytes only", false, true, nil},
		{"both", true, true, ErrConflictingInput},
		{"neither", false, false, ErrMissingInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateInput(tt.hasText, tt.hasBytes)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateInput(%v, %v) = %v, want %v", tt.hasText, tt.hasBytes, err, tt.wantErr)
			}
		})
	}
}

func TestInvokeRejectsBadInputWithoutBackendCall(t *testing.T) {
	tests := []struct {
		name    string
		req     *Request
		wantErr error
	}{
		{
			name: "both forms supplied",
			req: &Request{
				Operation: "encrypt",
				KeyName:   "k",
				Value:     secret.NewText("hello"),
				ByteValue: []byte("hello"),
				VaultName: "prod",
			},
			wantErr: ErrConflictingInput,
		},
		{
			name: "neither form supplied",
			req: &Request{
				Operation: "encrypt",
				KeyName:   "k",
				VaultName: "prod",
			},
			wantErr: ErrMissingInput,
		},
		{
			name: "no target named",
			req: &Request{
				Operation: "encrypt",
				KeyName:   "k",
				Value:     secret.NewText("hello"),
			},
			wantErr: ErrMissingTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vault := &mockBackend{}
			hsm := &mockBackend{}
			inv := newTestInvoker(t, vault, hsm)

			_, err := inv.Invoke(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Invoke() error = %v, want %v", err, tt.wantErr)
			}
			if len(vault.calls)+len(hsm.calls) != 0 {
				t.Errorf("expected no backend calls, got %d", len(vault.calls)+len(hsm.calls))
			}
		})
	}
}

func TestInvokeEncryptUTF8Payload(t *testing.T) {
	vault := &mockBackend{}
	inv := newTestInvoker(t, vault, nil)

	res, err := inv.Invoke(context.Background(), &Request{
		Operation: "Encrypt",
		Algorithm: "RSA-OAEP",
		KeyName:   "signing",
		Value:     secret.NewText("hello"),
		VaultName: "prod",
	})
	if err != nil {
		t.Fatalf("Invoke() unexpected error: %v", err)
	}

	if len(vault.calls) != 1 {
		t.Fatalf("expected exactly 1 backend call, got %d", len(vault.calls))
	}
	call := vault.calls[0]
	if call.op != "encrypt" {
		t.Errorf("backend op = %q, want encrypt", call.op)
	}
	if !bytes.Equal(call.payload, []byte("hello")) {
		t.Errorf("payload = %v, want UTF-8 bytes of \"hello\"", call.payload)
	}
	if call.container != "prod" || call.key != "signing" || call.algorithm != "RSA-OAEP" {
		t.Errorf("unexpected call args: %+v", call)
	}
	if res.Operation != "encrypt" || res.Algorithm != "RSA-OAEP" {
		t.Errorf("result not stamped: %+v", res)
	}
	if res.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", res.RequestID)
	}
}

func TestInvokeDecryptDecodesBase64(t *testing.T) {
	vault := &mockBackend{}
	inv := newTestInvoker(t, vault, nil)

	ciphertext := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	_, err := inv.Invoke(context.Background(), &Request{
		Operation: "decrypt",
		Algorithm: "RSA-OAEP",
		KeyName:   "signing",
		Value:     secret.NewText(ciphertext),
		VaultName: "prod",
	})
	if err != nil {
		t.Fatalf("Invoke() unexpected error: %v", err)
	}

	if len(vault.calls) != 1 {
		t.Fatalf("expected exactly 1 backend call, got %d", len(vault.calls))
	}
	if !bytes.Equal(vault.calls[0].payload, []byte{1, 2, 3}) {
		t.Errorf("payload = %v, want [1 2 3]", vault.calls[0].payload)
	}
}

func TestInvokeDecryptRejectsMalformedBase64(t *testing.T) {
	vault := &mockBackend{}
	inv := newTestInvoker(t, vault, nil)

	value := secret.NewText("not-base64!!!")
	_, err := inv.Invoke(context.Background(), &Request{
		Operation: "decrypt",
		KeyName:   "signing",
		Value:     value,
		VaultName: "prod",
	})
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("Invoke() error = %v, want ErrInvalidEncoding", err)
	}
	if len(vault.calls) != 0 {
		t.Errorf("expected no backend calls, got %d", len(vault.calls))
	}
	if !value.Destroyed() {
		t.Error("secret text should be destroyed on decode failure")
	}
}

func TestInvokeByteValueUsedVerbatim(t *testing.T) {
	vault := &mockBackend{}
	inv := newTestInvoker(t, vault, nil)

	raw := []byte{0xde, 0xad, 0xbe, 0xef}
	_, err := inv.Invoke(context.Background(), &Request{
		Operation: "unwrap",
		KeyName:   "kek",
		ByteValue: raw,
		VaultName: "prod",
	})
	if err != nil {
		t.Fatalf("Invoke() unexpected error: %v", err)
	}

	if len(vault.calls) != 1 {
		t.Fatalf("expected exactly 1 backend call, got %d", len(vault.calls))
	}
	if !bytes.Equal(vault.calls[0].payload, raw) {
		t.Errorf("payload = %v, want %v (verbatim)", vault.calls[0].payload, raw)
	}
	// Byte form belongs to the caller and must not be zeroized.
	if !bytes.Equal(raw, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Error("caller's ByteValue buffer was modified")
	}
}

func TestInvokeUnknownOperation(t *testing.T) {
	t.Run("byte form fails at dispatch", func(t *testing.T) {
		vault := &mockBackend{}
		hsm := &mockBackend{}
		inv := newTestInvoker(t, vault, hsm)

		for _, req := range []*Request{
			{Operation: "Foo", KeyName: "k", ByteValue: []byte{1}, VaultName: "prod"},
			{Operation: "Foo", KeyName: "k", ByteValue: []byte{1}, HSMName: "hsm1"},
		} {
			_, err := inv.Invoke(context.Background(), req)
			if !errors.Is(err, ErrUnsupportedOperation) {
				t.Errorf("Invoke() error = %v, want ErrUnsupportedOperation", err)
			}
		}
		if len(vault.calls)+len(hsm.calls) != 0 {
			t.Error("unknown operation must not reach a backend")
		}
	})

	t.Run("text form fails during payload derivation", func(t *testing.T) {
		vault := &mockBackend{}
		inv := newTestInvoker(t, vault, nil)

		value := secret.NewText("data")
		_, err := inv.Invoke(context.Background(), &Request{
			Operation: "Foo",
			KeyName:   "k",
			Value:     value,
			VaultName: "prod",
		})
		if !errors.Is(err, ErrUnsupportedOperation) {
			t.Errorf("Invoke() error = %v, want ErrUnsupportedOperation", err)
		}
		if len(vault.calls) != 0 {
			t.Error("unknown operation must not reach a backend")
		}
		if !value.Destroyed() {
			t.Error("secret text should be destroyed on failure")
		}
	})
}

func TestInvokeTargetRouting(t *testing.T) {
	tests := []struct {
		name          string
		vaultName     string
		hsmName       string
		wantVault     int
		wantHSM       int
		wantContainer string
	}{
		{"vault name routes to standard vault", "prod", "", 1, 0, "prod"},
		{"hsm name routes to dedicated cluster", "", "payments-hsm", 0, 1, "payments-hsm"},
		{"hsm wins when both are named", "prod", "payments-hsm", 0, 1, "payments-hsm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vault := &mockBackend{}
			hsm := &mockBackend{}
			inv := newTestInvoker(t, vault, hsm)

			_, err := inv.Invoke(context.Background(), &Request{
				Operation: "wrap",
				KeyName:   "kek",
				Value:     secret.NewText("key material"),
				VaultName: tt.vaultName,
				HSMName:   tt.hsmName,
			})
			if err != nil {
				t.Fatalf("Invoke() unexpected error: %v", err)
			}
			if len(vault.calls) != tt.wantVault || len(hsm.calls) != tt.wantHSM {
				t.Errorf("calls = vault:%d hsm:%d, want vault:%d hsm:%d",
					len(vault.calls), len(hsm.calls), tt.wantVault, tt.wantHSM)
			}
			calls := vault.calls
			if tt.wantHSM == 1 {
				calls = hsm.calls
			}
			if calls[0].container != tt.wantContainer {
				t.Errorf("container = %q, want %q", calls[0].container, tt.wantContainer)
			}
		})
	}
}

func TestInvokeUnconfiguredBackend(t *testing.T) {
	vault := &mockBackend{}
	inv := newTestInvoker(t, vault, nil)

	_, err := inv.Invoke(context.Background(), &Request{
		Operation: "encrypt",
		KeyName:   "k",
		Value:     secret.NewText("hello"),
		HSMName:   "payments-hsm",
	})
	if !errors.Is(err, ErrBackendNotConfigured) {
		t.Errorf("Invoke() error = %v, want ErrBackendNotConfigured", err)
	}
	if len(vault.calls) != 0 {
		t.Error("misrouted request must not fall back to the other backend")
	}
}

func TestNewRequiresABackend(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrBackendNotConfigured) {
		t.Errorf("New(Config{}) error = %v, want ErrBackendNotConfigured", err)
	}
}

func TestInvokeBackendErrorPropagatedVerbatim(t *testing.T) {
	backendErr := errors.New("permission denied")
	vault := &mockBackend{err: backendErr}
	inv := newTestInvoker(t, vault, nil)

	_, err := inv.Invoke(context.Background(), &Request{
		Operation: "encrypt",
		KeyName:   "k",
		Value:     secret.NewText("hello"),
		VaultName: "prod",
	})
	if err != backendErr {
		t.Errorf("Invoke() error = %v, want the backend error unwrapped and unmodified", err)
	}
	if len(vault.calls) != 1 {
		t.Errorf("expected exactly 1 backend call (no retry), got %d", len(vault.calls))
	}
}

func TestInvokeVersionInheritance(t *testing.T) {
	t.Run("inherits version from prior key identity", func(t *testing.T) {
		vault := &mockBackend{}
		inv := newTestInvoker(t, vault, nil)

		id, err := keyid.Parse("prod/keys/signing/v7")
		if err != nil {
			t.Fatalf("keyid.Parse: %v", err)
		}

		_, err = inv.Invoke(context.Background(), &Request{
			Operation: "encrypt",
			KeyName:   "signing",
			Key:       id,
			Value:     secret.NewText("hello"),
			VaultName: "prod",
		})
		if err != nil {
			t.Fatalf("Invoke() unexpected error: %v", err)
		}
		if vault.calls[0].version != "v7" {
			t.Errorf("version = %q, want v7 (inherited)", vault.calls[0].version)
		}
	})

	t.Run("explicit version beats prior identity", func(t *testing.T) {
		vault := &mockBackend{}
		inv := newTestInvoker(t, vault, nil)

		id, _ := keyid.Parse("prod/keys/signing/v7")
		_, err := inv.Invoke(context.Background(), &Request{
			Operation:  "encrypt",
			KeyName:    "signing",
			KeyVersion: "v9",
			Key:        id,
			Value:      secret.NewText("hello"),
			VaultName:  "prod",
		})
		if err != nil {
			t.Fatalf("Invoke() unexpected error: %v", err)
		}
		if vault.calls[0].version != "v9" {
			t.Errorf("version = %q, want v9 (explicit)", vault.calls[0].version)
		}
	})
}

func TestInvokeDestroysSecretOnSuccess(t *testing.T) {
	vault := &mockBackend{}
	inv := newTestInvoker(t, vault, nil)

	value := secret.NewText("hello")
	if _, err := inv.Invoke(context.Background(), &Request{
		Operation: "encrypt",
		KeyName:   "k",
		Value:     value,
		VaultName: "prod",
	}); err != nil {
		t.Fatalf("Invoke() unexpected error: %v", err)
	}
	if !value.Destroyed() {
		t.Error("secret text should be destroyed after normalization")
	}
}

func TestInvokeDestroysSecretOnValidationFailure(t *testing.T) {
	vault := &mockBackend{}
	inv := newTestInvoker(t, vault, nil)

	value := secret.NewText("hello")
	_, err := inv.Invoke(context.Background(), &Request{
		Operation: "encrypt",
		KeyName:   "k",
		Value:     value,
		ByteValue: []byte("hello"),
		VaultName: "prod",
	})
	if !errors.Is(err, ErrConflictingInput) {
		t.Fatalf("Invoke() error = %v, want ErrConflictingInput", err)
	}
	if !value.Destroyed() {
		t.Error("secret text should be destroyed when validation rejects the request")
	}
	if len(vault.calls) != 0 {
		t.Errorf("expected no backend calls, got %d", len(vault.calls))
	}
}

// TestEncodingRoundTrip checks the two text codecs are inverses at the
// encoding layer: UTF-8 plaintext in, base64 ciphertext back, original
// bytes recovered. The cryptography in between is the backend's business.
func TestEncodingRoundTrip(t *testing.T) {
	plaintext := "round trip me"

	// encrypt direction: text value becomes UTF-8 payload bytes.
	encryptReq := &Request{
		Operation: "encrypt",
		Value:     secret.NewText(plaintext),
		VaultName: "prod",
	}
	if err := encryptReq.normalize(); err != nil {
		t.Fatalf("normalize(encrypt) unexpected error: %v", err)
	}

	// Model the backend echoing the bytes back as base64 text, the form a
	// text-typed decrypt parameter carries.
	echoed := base64.StdEncoding.EncodeToString(encryptReq.payload)

	decryptReq := &Request{
		Operation: "decrypt",
		Value:     secret.NewText(echoed),
		VaultName: "prod",
	}
	if err := decryptReq.normalize(); err != nil {
		t.Fatalf("normalize(decrypt) unexpected error: %v", err)
	}

	if string(decryptReq.payload) != plaintext {
		t.Errorf("round trip = %q, want %q", decryptReq.payload, plaintext)
	}
}
