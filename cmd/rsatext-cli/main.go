// Package main provides the rsatext-cli command line interface: key
// generation, per-character text encryption and decryption, and key
// management on top of the rsatext library.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	rsatext "github.com/BanPerm/RSA-test-implementation"
	"github.com/BanPerm/RSA-test-implementation/internal/config"
	"github.com/BanPerm/RSA-test-implementation/internal/logging"
	"github.com/BanPerm/RSA-test-implementation/keyfile"
	"github.com/BanPerm/RSA-test-implementation/keystore"
	"github.com/BanPerm/RSA-test-implementation/utils"
)

const (
	version = "1.0.0"
	appName = "rsatext-cli"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra has already printed the error.
		os.Exit(1)
	}
}

// cli carries the resolved settings from the root command to subcommands.
type cli struct {
	cfgFile string
	verbose bool
	timing  bool
	cfg     config.Config
}

// newRootCmd builds a fresh command tree. Tests call it once per run so no
// state leaks between executions.
func newRootCmd() *cobra.Command {
	a := &cli{}
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Textbook RSA key generation and per-character text encryption",
		Long: `rsatext-cli generates RSA key pairs and encrypts text one Unicode code
point at a time. The ciphertext is a list of decimal integers separated by
spaces.

WARNING: this is unpadded textbook RSA. Equal characters produce equal
ciphertext units. Do not use it to protect sensitive data.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/rsatext/rsatext.yaml or ./rsatext.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging on stderr")
	pf.BoolVar(&a.timing, "timing", false, "print elapsed time on stderr")
	def := config.Default()
	pf.Int("bits", def.Bits, "bit length of each prime")
	pf.Int("rounds", def.Rounds, "Miller-Rabin rounds per prime candidate")
	pf.Int("max-attempts", def.MaxAttempts, "cap on prime candidates and key retries (0 = unbounded)")
	pf.String("key-dir", def.KeyDir, "directory holding rsa_public and rsa_secret")
	pf.String("store", def.Store, "SQLite key store; when set, keys are read from and written to it")
	pf.String("name", "default", "key name inside the key store")
	pf.String("log-level", def.LogLevel, `log level ("debug", "info", "warn", "error")`)

	cmd.AddCommand(
		a.newKeygenCmd(),
		a.newEncryptCmd(),
		a.newDecryptCmd(),
		a.newFingerprintCmd(),
		a.newKeysCmd(),
		a.newBenchmarkCmd(),
		a.newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

// setup resolves configuration and logging before any subcommand runs.
func (a *cli) setup(cmd *cobra.Command, args []string) error {
	logging.SetOutput(cmd.ErrOrStderr())
	cfg, err := config.Load(cmd, a.cfgFile)
	if err != nil {
		return err
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	if a.verbose {
		logging.SetVerbose(true)
	}
	a.cfg = cfg
	logging.Debugf("config: %+v", cfg)
	return nil
}

// timed runs fn and reports its duration when --timing is set.
func (a *cli) timed(cmd *cobra.Command, label string, fn func() error) error {
	start := time.Now()
	err := fn()
	if a.timing {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", label, time.Since(start))
	}
	return err
}

func (a *cli) openStore(ctx context.Context) (*keystore.Store, error) {
	if dir := filepath.Dir(a.cfg.Store); dir != "." && a.cfg.Store != ":memory:" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create key store directory: %w", err)
		}
	}
	return keystore.Open(ctx, a.cfg.Store)
}

func keyName(cmd *cobra.Command) string {
	name, _ := cmd.Flags().GetString("name")
	return name
}

// loadKeyPair reads the configured key pair from the store or the key
// directory.
func (a *cli) loadKeyPair(cmd *cobra.Command) (*rsatext.KeyPair, error) {
	if a.cfg.Store != "" {
		s, err := a.openStore(cmd.Context())
		if err != nil {
			return nil, err
		}
		defer s.Close()
		entry, err := s.Get(cmd.Context(), keyName(cmd))
		if err != nil {
			return nil, err
		}
		return entry.KeyPair, nil
	}
	kp, err := keyfile.LoadKeyPair(a.cfg.KeyDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no key pair in %s (run %s keygen first): %w", a.cfg.KeyDir, appName, err)
	}
	return kp, err
}

// publicKey resolves the encryption key: an explicit file, then the store,
// then the key directory.
func (a *cli) publicKey(cmd *cobra.Command, keyFile string) (rsatext.PublicKey, error) {
	if keyFile != "" {
		return keyfile.LoadPublicKey(keyFile)
	}
	if a.cfg.Store != "" {
		kp, err := a.loadKeyPair(cmd)
		if err != nil {
			return rsatext.PublicKey{}, err
		}
		return kp.Public(), nil
	}
	pub, err := keyfile.LoadPublicKey(filepath.Join(a.cfg.KeyDir, keyfile.PublicKeyFile))
	if errors.Is(err, os.ErrNotExist) {
		return pub, fmt.Errorf("no public key in %s (run %s keygen first): %w", a.cfg.KeyDir, appName, err)
	}
	return pub, err
}

// privateKey resolves the decryption key the same way as publicKey.
func (a *cli) privateKey(cmd *cobra.Command, keyFile string) (rsatext.PrivateKey, error) {
	if keyFile != "" {
		return keyfile.LoadPrivateKey(keyFile)
	}
	if a.cfg.Store != "" {
		kp, err := a.loadKeyPair(cmd)
		if err != nil {
			return rsatext.PrivateKey{}, err
		}
		return kp.Private(), nil
	}
	priv, err := keyfile.LoadPrivateKey(filepath.Join(a.cfg.KeyDir, keyfile.PrivateKeyFile))
	if errors.Is(err, os.ErrNotExist) {
		return priv, fmt.Errorf("no private key in %s (run %s keygen first): %w", a.cfg.KeyDir, appName, err)
	}
	return priv, err
}

// readInput returns the text given inline, read from a file, or piped on
// stdin, in that order of preference.
func readInput(cmd *cobra.Command, inlineFlag, inputFile string) (string, error) {
	inline, _ := cmd.Flags().GetString(inlineFlag)
	if cmd.Flags().Changed(inlineFlag) {
		if inputFile != "" {
			return "", fmt.Errorf("--%s and --input are mutually exclusive", inlineFlag)
		}
		return inline, nil
	}
	if inputFile != "" {
		info, err := os.Stat(inputFile)
		if err != nil {
			return "", fmt.Errorf("failed to stat input file: %w", err)
		}
		if info.Size() > utils.MaxInputFileSize {
			return "", fmt.Errorf("input file too large: %d > %d bytes", info.Size(), utils.MaxInputFileSize)
		}
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", fmt.Errorf("no input: use --%s, --input or pipe text on stdin", inlineFlag)
	}
	data, err := io.ReadAll(io.LimitReader(in, utils.MaxInputFileSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(data) > utils.MaxInputFileSize {
		return "", fmt.Errorf("stdin input larger than %d bytes", utils.MaxInputFileSize)
	}
	return string(data), nil
}

// writeOutput writes data to filename with owner-only permissions, or to
// the command's stdout when filename is empty.
func writeOutput(cmd *cobra.Command, data []byte, filename string) error {
	if filename == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("error writing output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("error writing output file: %w", err)
	}
	// The file may have existed with looser permissions.
	if err := os.Chmod(filename, 0o600); err != nil {
		return fmt.Errorf("error setting file permissions: %w", err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s version %s\n", appName, version)
			fmt.Fprintf(out, "rsatext library version %s\n", rsatext.Version)
			return nil
		},
	}
}
