/*
Package hsm provides the dedicated hardware-backed backend for key
operations.

Dedicated clusters are namespace-scoped and TLS-only, so construction
rejects plain-HTTP addresses and empty namespaces. The wire codec is
plain base64 with an explicit key_version field on both requests and
responses; there is no formatted-ciphertext prefix, so results carry raw
ciphertext bytes.
*/
package hsm
