/*
Package secret holds short-lived secret material with explicit zeroization.

Text is a one-shot container for a caller-supplied secret string. Reveal
returns the backing bytes; Destroy overwrites them and is idempotent.
Explicit zeroization does not guarantee the secret never existed elsewhere
in memory, but it clears the copy this package controls as soon as the
caller is done with it instead of waiting for the garbage collector.
*/
package secret
