/*
Package keyops builds, validates, and dispatches cryptographic key
operation requests against a remote key service.

The package performs no cryptography itself. It turns caller-supplied
parameters into exactly one backend call:

 1. Validation: the caller must supply exactly one of the two payload
    forms (secret text or raw bytes).
 2. Normalization: the symbolic operation name is resolved, the key
    version is inherited from a prior key identity when unset, and the
    chosen payload form is converted into canonical raw bytes. Text
    payloads are UTF-8 for encrypt/wrap and base64 ciphertext for
    decrypt/unwrap.
 3. Dispatch: the request is routed to the standard-vault or the
    dedicated hardware-backed (HSM) backend, selected by which container
    identifier the caller named, and the backend's result is returned
    untouched.

Backends implement the KeyOperations interface; pkg/vault and pkg/hsm
provide the two production clients. Unrecognized operation names are
accepted during normalization and rejected at dispatch time, so the
failure surfaces at the single point of use.

Secret text payloads are zeroized on every normalization exit path, and
payloads derived from them are zeroized once the backend call returns.
*/
package keyops
