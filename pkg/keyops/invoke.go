package keyops

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/alexadamm/keyops-vault-go/pkg/secret"
)

// invoker implements the Invoker interface
type invoker struct {
	vault   KeyOperations
	hsm     KeyOperations
	metrics bool
}

func (i *invoker) Invoke(ctx context.Context, req *Request) (*Result, error) {
	if err := validateInput(req.Value != nil, req.ByteValue != nil); err != nil {
		// The secret text is zeroized on every exit path, including the
		// one where it should never have been paired with a byte form.
		if req.Value != nil {
			req.Value.Destroy()
		}
		return nil, err
	}

	if err := req.normalize(); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := i.dispatch(ctx, req)
	if i.metrics {
		observe(req.op, req.target.Kind, time.Since(start), err)
	}

	// The payload derived from the text form is secret material; clear it
	// once the backend call is over. A caller-supplied ByteValue is the
	// caller's buffer and is left alone.
	if req.derived {
		secret.Zero(req.payload)
	}
	req.payload = nil

	return res, err
}

// validateInput enforces that exactly one payload form is present. It runs
// before normalization, which assumes the invariant holds.
func validateInput(hasText, hasBytes bool) error {
	switch {
	case hasText && hasBytes:
		return ErrConflictingInput
	case !hasText && !hasBytes:
		return ErrMissingInput
	default:
		return nil
	}
}

// normalize resolves the operation, inherits the key version from a prior
// key identity, derives the canonical payload bytes, and fixes the target.
// After it returns, only op, payload, and target are consulted.
func (r *Request) normalize() error {
	if r.KeyVersion == "" && r.Key != nil {
		r.KeyVersion = r.Key.Version
	}

	r.op = ParseOperation(r.Operation)

	if r.Value != nil {
		defer r.Value.Destroy()

		raw := r.Value.Reveal()
		switch r.op {
		case OperationEncrypt, OperationWrap:
			// Plaintext operand: the text is the payload.
			r.payload = append([]byte(nil), raw...)
		case OperationDecrypt, OperationUnwrap:
			// Ciphertext operand: text-typed ciphertext is carried as
			// standard base64 and must be decoded before hitting the wire.
			decoded, err := base64.StdEncoding.DecodeString(string(raw))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
			}
			r.payload = decoded
		default:
			// Without a resolved operation there is no way to choose the
			// text codec, so the unknown name surfaces here instead of at
			// dispatch.
			return fmt.Errorf("%w: %q", ErrUnsupportedOperation, r.Operation)
		}
		r.derived = true
	} else {
		r.payload = r.ByteValue
	}

	switch {
	case r.HSMName != "":
		r.target = Target{Kind: TargetDedicated, Container: r.HSMName}
	case r.VaultName != "":
		r.target = Target{Kind: TargetStandard, Container: r.VaultName}
	default:
		return ErrMissingTarget
	}

	return nil
}

// dispatch routes a normalized request to its backend and makes exactly one
// call. Backend errors are returned verbatim.
func (i *invoker) dispatch(ctx context.Context, req *Request) (*Result, error) {
	if req.op == OperationUnknown {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperation, req.Operation)
	}

	var backend KeyOperations
	if req.target.Kind == TargetDedicated {
		backend = i.hsm
	} else {
		backend = i.vault
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: %s %q", ErrBackendNotConfigured, req.target.Kind, req.target.Container)
	}

	var (
		res *Result
		err error
	)
	switch req.op {
	case OperationEncrypt:
		res, err = backend.Encrypt(ctx, req.target.Container, req.KeyName, req.KeyVersion, req.payload, req.Algorithm)
	case OperationDecrypt:
		res, err = backend.Decrypt(ctx, req.target.Container, req.KeyName, req.KeyVersion, req.payload, req.Algorithm)
	case OperationWrap:
		res, err = backend.WrapKey(ctx, req.target.Container, req.KeyName, req.KeyVersion, req.payload, req.Algorithm)
	case OperationUnwrap:
		res, err = backend.UnwrapKey(ctx, req.target.Container, req.KeyName, req.KeyVersion, req.payload, req.Algorithm)
	}
	if err != nil {
		return nil, err
	}

	res.Operation = req.op.String()
	res.Algorithm = req.Algorithm

	return res, nil
}
