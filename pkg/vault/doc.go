/*
Package vault provides the standard-vault backend for key operations.

The client speaks to a key-service secrets engine mounted per container,
writing to {container}/{operation}/{key}. Payloads travel as standard
base64; encrypt and wrap responses come back in the engine's formatted
shape, "vault:v{N}:{base64}", which carries the key version used. The
client returns that formatted ciphertext as the opaque result and parses
it again when it arrives as the operand of a decrypt or unwrap.

All cryptography happens server-side; the client only encodes requests
and decodes responses.
*/
package vault
