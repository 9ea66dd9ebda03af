package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	rsatext "github.com/BanPerm/RSA-test-implementation"
	"github.com/BanPerm/RSA-test-implementation/codec"
	"github.com/BanPerm/RSA-test-implementation/keyfile"
	"github.com/BanPerm/RSA-test-implementation/keygen"
)

// ============================================================================
// Key generation
// ============================================================================

func (a *cli) newKeygenCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a key pair",
		Long: `Generate a key pair from two random primes of --bits bits each and the
public exponent 65537. The pair is written to rsa_public and rsa_secret in
--key-dir, or saved under --name in --store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.cfg.Params()
			if err != nil {
				return err
			}
			if a.cfg.Store == "" && !force {
				if err := refuseOverwrite(a.cfg.KeyDir); err != nil {
					return err
				}
			}

			var kp *rsatext.KeyPair
			err = a.timed(cmd, "keygen", func() error {
				var err error
				kp, err = keygen.GenerateKeyPairWithParams(params)
				return err
			})
			if err != nil {
				return err
			}

			where := a.cfg.KeyDir
			if a.cfg.Store != "" {
				s, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer s.Close()
				if _, err := s.Save(cmd.Context(), keyName(cmd), kp); err != nil {
					return err
				}
				where = fmt.Sprintf("%s (name %q)", a.cfg.Store, keyName(cmd))
			} else if err := keyfile.SaveKeyPair(a.cfg.KeyDir, kp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generated %d-bit key pair in %s\n", kp.Modulus.BitLen(), where)
			fmt.Fprintf(out, "Fingerprint: %s\n", kp.Fingerprint())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing key files")
	return cmd
}

func refuseOverwrite(dir string) error {
	for _, name := range []string{keyfile.PublicKeyFile, keyfile.PrivateKeyFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to replace it)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ============================================================================
// Encryption
// ============================================================================

func (a *cli) newEncryptCmd() *cobra.Command {
	var (
		inputFile, outputFile, keyFile string
		generate                       bool
	)
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt text one character at a time",
		Long: `Encrypt text given with --message, read from --input, or piped on stdin.
The output is one decimal integer per Unicode code point, separated by
single spaces.`,
		Example: `  rsatext-cli encrypt --message "Hello World"
  rsatext-cli encrypt --input note.txt --output note.enc
  echo -n "piped" | rsatext-cli encrypt --key ./keys/rsa_public`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, "message", inputFile)
			if err != nil {
				return err
			}

			var pub rsatext.PublicKey
			if generate && keyFile == "" && a.cfg.Store == "" {
				kp, created, err := keyfile.LoadOrGenerate(a.cfg.KeyDir, a.cfg.Bits)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.ErrOrStderr(), "Generated new key pair in %s (fingerprint %s)\n", a.cfg.KeyDir, kp.Fingerprint())
				}
				pub = kp.Public()
			} else if pub, err = a.publicKey(cmd, keyFile); err != nil {
				return err
			}

			var wire string
			err = a.timed(cmd, "encrypt", func() error {
				var err error
				wire, err = codec.EncryptString(text, pub)
				return err
			})
			if err != nil {
				return err
			}
			return writeOutput(cmd, []byte(wire), outputFile)
		},
	}
	f := cmd.Flags()
	f.StringP("message", "m", "", "text to encrypt")
	f.StringVarP(&inputFile, "input", "i", "", "read the text from a file")
	f.StringVarP(&outputFile, "output", "o", "", "write the ciphertext to a file instead of stdout")
	f.StringVarP(&keyFile, "key", "k", "", "public key file (overrides --key-dir and --store)")
	f.BoolVar(&generate, "generate", false, "generate and save a key pair in --key-dir if none is usable")
	return cmd
}

func (a *cli) newDecryptCmd() *cobra.Command {
	var inputFile, outputFile, keyFile string
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a stream of decimal ciphertext units",
		Long: `Decrypt ciphertext given with --ciphertext, read from --input, or piped on
stdin. Units may be separated by any whitespace.`,
		Example: `  rsatext-cli decrypt --input note.enc
  rsatext-cli encrypt -m hi | rsatext-cli decrypt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wire, err := readInput(cmd, "ciphertext", inputFile)
			if err != nil {
				return err
			}
			priv, err := a.privateKey(cmd, keyFile)
			if err != nil {
				return err
			}

			var text string
			err = a.timed(cmd, "decrypt", func() error {
				var err error
				text, err = codec.DecryptString(wire, priv)
				return err
			})
			if err != nil {
				return err
			}
			if outputFile == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}
			return writeOutput(cmd, []byte(text), outputFile)
		},
	}
	f := cmd.Flags()
	f.StringP("ciphertext", "c", "", "ciphertext units to decrypt")
	f.StringVarP(&inputFile, "input", "i", "", "read the ciphertext from a file")
	f.StringVarP(&outputFile, "output", "o", "", "write the plaintext to a file instead of stdout")
	f.StringVarP(&keyFile, "key", "k", "", "private key file (overrides --key-dir and --store)")
	return cmd
}

// ============================================================================
// Key inspection and management
// ============================================================================

func (a *cli) newFingerprintCmd() *cobra.Command {
	var keyFile string
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the fingerprint of a public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := a.publicKey(cmd, keyFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %d-bit modulus, e=%s\n", pub.Fingerprint(), pub.N.BitLen(), pub.E)
			return nil
		},
	}
	cmd.Flags().StringVarP(&keyFile, "key", "k", "", "public key file (overrides --key-dir and --store)")
	return cmd
}

// keyListing is the public view of a stored key.
type keyListing struct {
	Name        string    `json:"name" yaml:"name"`
	ID          string    `json:"id" yaml:"id"`
	Fingerprint string    `json:"fingerprint" yaml:"fingerprint"`
	Bits        int       `json:"bits" yaml:"bits"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

func (a *cli) newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage key pairs in the key store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, args); err != nil {
				return err
			}
			if a.cfg.Store == "" {
				return errors.New("no key store configured (use --store or RSATEXT_STORE)")
			}
			return nil
		},
	}

	var format string
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			entries, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([]keyListing, len(entries))
			for i, e := range entries {
				rows[i] = keyListing{Name: e.Name, ID: e.ID, Fingerprint: e.Fingerprint, Bits: e.Bits, CreatedAt: e.CreatedAt}
			}
			return printListing(cmd, rows, format)
		},
	}
	list.Flags().StringVar(&format, "format", "text", `output format ("text", "json", "yaml")`)

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	var exportDir string
	export := &cobra.Command{
		Use:   "export NAME",
		Short: "Write a stored key pair as rsa_public and rsa_secret files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			entry, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := keyfile.SaveKeyPair(exportDir, entry.KeyPair); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", args[0], exportDir)
			return nil
		},
	}
	export.Flags().StringVar(&exportDir, "dir", ".", "destination directory")

	var importDir string
	imp := &cobra.Command{
		Use:   "import NAME",
		Short: "Store the key pair found in rsa_public and rsa_secret files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := keyfile.LoadKeyPair(importDir)
			if err != nil {
				return err
			}
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			entry, err := s.Save(cmd.Context(), args[0], kp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s)\n", entry.Name, entry.Fingerprint)
			return nil
		},
	}
	imp.Flags().StringVar(&importDir, "dir", ".", "directory holding the key files")

	cmd.AddCommand(list, del, export, imp)
	return cmd
}

func printListing(cmd *cobra.Command, rows []keyListing, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFINGERPRINT\tBITS\tCREATED")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.Name, r.Fingerprint, r.Bits, r.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
