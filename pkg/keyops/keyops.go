package keyops

import (
	"context"
	"encoding/base64"

	"github.com/alexadamm/keyops-vault-go/pkg/keyid"
	"github.com/alexadamm/keyops-vault-go/pkg/secret"
)

// Invoker is the main interface for key operations
type Invoker interface {
	// Invoke validates, normalizes, and dispatches a single operation
	// request, making exactly one backend call.
	// The request is one-shot: it is consumed by the call and must not
	// be reused.
	Invoke(ctx context.Context, req *Request) (*Result, error)
}

// KeyOperations is the capability surface a backend must provide.
// Each method performs one remote cryptographic operation against the key
// named by (container, key, version) and returns the backend's result
// untouched. An empty version means the latest key version.
type KeyOperations interface {
	Encrypt(ctx context.Context, container, key, version string, payload []byte, algorithm string) (*Result, error)
	Decrypt(ctx context.Context, container, key, version string, payload []byte, algorithm string) (*Result, error)
	WrapKey(ctx context.Context, container, key, version string, payload []byte, algorithm string) (*Result, error)
	UnwrapKey(ctx context.Context, container, key, version string, payload []byte, algorithm string) (*Result, error)
}

// Config holds the configuration for an Invoker
type Config struct {
	// Vault handles requests that name a standard vault.
	// May be nil when every request targets an HSM.
	Vault KeyOperations

	// HSM handles requests that name a dedicated hardware-backed cluster.
	// May be nil when every request targets a standard vault.
	HSM KeyOperations

	// Optional metrics configuration
	Metrics *MetricsConfig
}

// MetricsConfig configures metrics collection
type MetricsConfig struct {
	Enabled bool
}

// Request is a single key operation to perform. Exactly one of Value and
// ByteValue must be set; VaultName and HSMName select the backend, with
// HSMName taking precedence when both are present.
type Request struct {
	// Operation is the symbolic operation name: encrypt, decrypt, wrap,
	// or unwrap (case-insensitive). Unrecognized names are rejected at
	// dispatch time.
	Operation string

	// Algorithm is passed through to the backend unvalidated; the backend
	// is authoritative on which algorithms a key supports.
	Algorithm string

	// KeyName is the key to operate with, within the target container.
	KeyName string

	// KeyVersion pins a key version. Empty means latest, unless Key
	// carries a version to inherit.
	KeyVersion string

	// Key is a previously resolved key identity. When set and KeyVersion
	// is empty, its version is adopted.
	Key *keyid.ID

	// Value is the text form of the payload: plaintext for encrypt/wrap,
	// base64 ciphertext for decrypt/unwrap. Destroyed during Invoke.
	Value *secret.Text

	// ByteValue is the raw byte form of the payload, used verbatim.
	ByteValue []byte

	// VaultName targets a standard vault.
	VaultName string

	// HSMName targets a dedicated hardware-backed cluster.
	HSMName string

	// Populated by normalization.
	op      Operation
	payload []byte
	derived bool // payload was derived from Value and must be zeroized
	target  Target
}

// TargetKind distinguishes the two backend capability surfaces.
type TargetKind int

const (
	// TargetStandard is a general-purpose vault addressed by name.
	TargetStandard TargetKind = iota
	// TargetDedicated is a hardware-backed cluster addressed by its own
	// identifier.
	TargetDedicated
)

func (k TargetKind) String() string {
	if k == TargetDedicated {
		return "hsm"
	}
	return "vault"
}

// Target names the backend container a request is dispatched to.
type Target struct {
	Kind      TargetKind
	Container string
}

// Result is the backend's answer to a dispatched operation.
type Result struct {
	// Operation is the resolved operation name.
	Operation string

	// Algorithm echoes the algorithm the request carried.
	Algorithm string

	// KeyID identifies the key, including the version the backend used.
	KeyID string

	// RequestID is the backend-reported request identifier, when present.
	RequestID string

	// Data is the opaque result returned by the backend, unmodified.
	Data []byte
}

// DataBase64 returns Data as standard base64 text.
func (r *Result) DataBase64() string {
	return base64.StdEncoding.EncodeToString(r.Data)
}

// New creates a new Invoker
func New(config Config) (Invoker, error) {
	if config.Vault == nil && config.HSM == nil {
		return nil, ErrBackendNotConfigured
	}

	return &invoker{
		vault:   config.Vault,
		hsm:     config.HSM,
		metrics: config.Metrics != nil && config.Metrics.Enabled,
	}, nil
}
