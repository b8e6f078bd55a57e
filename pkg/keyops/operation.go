package keyops

import "strings"

// Operation is a resolved key operation.
//
// Symbolic names that do not resolve become OperationUnknown rather than
// failing immediately; the failure is reported at dispatch time, the single
// point where the operation is used.
type Operation int

const (
	OperationUnknown Operation = iota
	OperationEncrypt
	OperationDecrypt
	OperationWrap
	OperationUnwrap
)

// ParseOperation resolves a symbolic operation name, case-insensitively.
func ParseOperation(name string) Operation {
	switch strings.ToLower(name) {
	case "encrypt":
		return OperationEncrypt
	case "decrypt":
		return OperationDecrypt
	case "wrap":
		return OperationWrap
	case "unwrap":
		return OperationUnwrap
	default:
		return OperationUnknown
	}
}

func (op Operation) String() string {
	switch op {
	case OperationEncrypt:
		return "encrypt"
	case OperationDecrypt:
		return "decrypt"
	case OperationWrap:
		return "wrap"
	case OperationUnwrap:
		return "unwrap"
	default:
		return "unknown"
	}
}
