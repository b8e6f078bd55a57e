package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alexadamm/keyops-vault-go/internal/logging"
	"github.com/alexadamm/keyops-vault-go/pkg/hsm"
	"github.com/alexadamm/keyops-vault-go/pkg/keyid"
	"github.com/alexadamm/keyops-vault-go/pkg/keyops"
	"github.com/alexadamm/keyops-vault-go/pkg/secret"
	"github.com/alexadamm/keyops-vault-go/pkg/vault"
)

// invokeFlags holds the flag values of one invoke run.
type invokeFlags struct {
	algorithm  string
	key        string
	keyVersion string
	keyID      string
	value      string
	in         string
	prompt     bool
	vaultName  string
	hsmName    string
	out        string
}

var invokeArgs invokeFlags

var invokeCmd = &cobra.Command{
	Use:   "invoke <operation>",
	Short: "Invoke a key operation: encrypt, decrypt, wrap, or unwrap.",
	Long: `Invoke dispatches one key operation to the targeted backend.

The payload comes from exactly one of --value (secret text), --in (a
file of raw bytes), or --prompt (no-echo terminal entry). Text payloads
are plaintext for encrypt/wrap and standard base64 ciphertext for
decrypt/unwrap.

Encrypt and wrap print base64 to stdout; decrypt and unwrap write raw
bytes, or use --out to write them to a file.`,
	Args: cobra.ExactArgs(1),
	RunE: runInvoke,
}

func init() {
	f := invokeCmd.Flags()
	f.StringVarP(&invokeArgs.algorithm, "algorithm", "a", "", "algorithm to use (passed through to the backend)")
	f.StringVarP(&invokeArgs.key, "key", "k", "", "key name within the target container")
	f.StringVar(&invokeArgs.keyVersion, "key-version", "", "key version to pin (default latest)")
	f.StringVar(&invokeArgs.keyID, "key-id", "", "previously resolved key identifier ([hsm:]container/keys/name[/version])")
	f.StringVar(&invokeArgs.value, "value", "", "payload as secret text")
	f.StringVar(&invokeArgs.in, "in", "", "payload file of raw bytes")
	f.BoolVar(&invokeArgs.prompt, "prompt", false, "read the payload text from the terminal without echo")
	f.StringVar(&invokeArgs.vaultName, "vault", "", "standard vault container to target")
	f.StringVar(&invokeArgs.hsmName, "hsm", "", "dedicated hardware-backed container to target")
	f.StringVar(&invokeArgs.out, "out", "", "write the result bytes to a file (mode 0600)")

	invokeCmd.MarkFlagRequired("algorithm")
	invokeCmd.MarkFlagsMutuallyExclusive("vault", "hsm")
}

func runInvoke(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	req, err := buildRequest(args[0], invokeArgs)
	if err != nil {
		return err
	}

	inv, err := buildInvoker(req)
	if err != nil {
		return err
	}

	logging.Debugf("dispatching %s for key %q", args[0], req.KeyName)

	res, err := inv.Invoke(ctx, req)
	if err != nil {
		return err
	}

	logging.Debugf("backend request %s used key %s", res.RequestID, res.KeyID)

	return writeResult(res, invokeArgs.out)
}

// buildRequest maps the command line onto a keyops.Request. Payload-form
// exclusivity is deliberately not enforced here: the library validator is
// authoritative and its errors should surface. The operation text is also
// passed through unparsed so unknown names fail where the library says
// they fail.
func buildRequest(operation string, flags invokeFlags) (*keyops.Request, error) {
	req := &keyops.Request{
		Operation:  operation,
		Algorithm:  flags.algorithm,
		KeyName:    flags.key,
		KeyVersion: flags.keyVersion,
		VaultName:  flags.vaultName,
		HSMName:    flags.hsmName,
	}

	if flags.keyID != "" {
		id, err := keyid.Parse(flags.keyID)
		if err != nil {
			return nil, err
		}
		req.Key = id
		if req.KeyName == "" {
			req.KeyName = id.Name
		}
		// A key identifier also names its container when the caller
		// did not target one explicitly.
		if req.VaultName == "" && req.HSMName == "" {
			if id.HSM {
				req.HSMName = id.Container
			} else {
				req.VaultName = id.Container
			}
		}
	}

	if flags.value != "" {
		req.Value = secret.NewText(flags.value)
	} else if flags.prompt {
		text, err := promptSecret("Enter payload: ")
		if err != nil {
			return nil, err
		}
		req.Value = secret.NewText(text)
	}

	if flags.in != "" {
		data, err := os.ReadFile(flags.in)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload file: %w", err)
		}
		req.ByteValue = data
	}

	return req, nil
}

// buildInvoker constructs only the backend the built request targets, so
// a vault-only invocation never dials the HSM settings and vice versa.
// The request, not the raw flags, decides: an hsm-prefixed --key-id
// targets the dedicated cluster without --hsm being passed.
func buildInvoker(req *keyops.Request) (keyops.Invoker, error) {
	cfg := keyops.Config{
		Metrics: &keyops.MetricsConfig{Enabled: viper.GetBool("metrics.enabled")},
	}

	if req.HSMName != "" {
		client, err := hsm.New(hsm.Config{
			Address:    viper.GetString("hsm.address"),
			Namespace:  viper.GetString("hsm.namespace"),
			Token:      resolveToken("hsm.token"),
			CACert:     viper.GetString("hsm.ca_cert"),
			ClientCert: viper.GetString("hsm.client_cert"),
			ClientKey:  viper.GetString("hsm.client_key"),
			Timeout:    viper.GetDuration("timeout"),
		})
		if err != nil {
			return nil, err
		}
		cfg.HSM = client
	} else {
		client, err := vault.New(vault.Config{
			Address: viper.GetString("vault.address"),
			Token:   resolveToken("vault.token"),
			CACert:  viper.GetString("vault.ca_cert"),
			Timeout: viper.GetDuration("timeout"),
		})
		if err != nil {
			return nil, err
		}
		cfg.Vault = client
	}

	return keyops.New(cfg)
}

// resolveToken looks for a backend token in config/env first, then falls
// back to the OS keyring entry managed by the token subcommand.
func resolveToken(configKey string) string {
	if tok := viper.GetString(configKey); tok != "" {
		return tok
	}
	if tok := viper.GetString("token"); tok != "" {
		return tok
	}
	tok, err := keyringToken()
	if err != nil {
		logging.Debugf("no keyring token: %v", err)
		return ""
	}
	return tok
}

// writeResult prints the backend result: base64 for ciphertext-producing
// operations, raw bytes for plaintext-producing ones.
func writeResult(res *keyops.Result, out string) error {
	if out != "" {
		if err := os.WriteFile(out, res.Data, 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		logging.Infof("wrote %d bytes to %s", len(res.Data), out)
		return nil
	}

	switch res.Operation {
	case "encrypt", "wrap":
		fmt.Println(res.DataBase64())
	default:
		os.Stdout.Write(res.Data)
	}
	return nil
}
