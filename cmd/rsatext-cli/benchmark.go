package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	rsatext "github.com/BanPerm/RSA-test-implementation"
	"github.com/BanPerm/RSA-test-implementation/codec"
	"github.com/BanPerm/RSA-test-implementation/internal/config"
	"github.com/BanPerm/RSA-test-implementation/keygen"
	"github.com/BanPerm/RSA-test-implementation/primes"
)

// ============================================================================
// Benchmark
// ============================================================================

func (a *cli) newBenchmarkCmd() *cobra.Command {
	var iterations int
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Measure prime generation, key generation and text encryption",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.cfg.Params()
			if err != nil {
				return err
			}
			if iterations < 1 {
				iterations = 1
			}
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "rsatext Benchmark Results\n")
			fmt.Fprintf(out, "=========================\n")
			fmt.Fprintf(out, "Prime bits: %d\n", params.PrimeBits)
			fmt.Fprintf(out, "Iterations: %d\n\n", iterations)

			var primeTotal time.Duration
			for i := 0; i < iterations; i++ {
				start := time.Now()
				if _, err := primes.GeneratePrimeWithParams(params.PrimeBits, params.MillerRabinRounds, params.MaxAttempts); err != nil {
					return fmt.Errorf("prime generation: %w", err)
				}
				primeTotal += time.Since(start)
			}
			fmt.Fprintf(out, "  Prime:    %v (avg)\n", primeTotal/time.Duration(iterations))

			var keygenTotal time.Duration
			var kp *rsatext.KeyPair
			for i := 0; i < iterations; i++ {
				start := time.Now()
				kp, err = keygen.GenerateKeyPairWithParams(params)
				keygenTotal += time.Since(start)
				if err != nil {
					return fmt.Errorf("keygen: %w", err)
				}
			}
			fmt.Fprintf(out, "  KeyGen:   %v (avg)\n", keygenTotal/time.Duration(iterations))

			message := strings.Repeat("Hello, rsatext! ", 8)
			pub, priv := kp.Public(), kp.Private()

			var encryptTotal time.Duration
			var wire string
			for i := 0; i < iterations; i++ {
				start := time.Now()
				wire, err = codec.EncryptString(message, pub)
				encryptTotal += time.Since(start)
				if err != nil {
					return fmt.Errorf("encrypt: %w", err)
				}
			}
			fmt.Fprintf(out, "  Encrypt:  %v (avg, %d chars)\n", encryptTotal/time.Duration(iterations), len(message))

			var decryptTotal time.Duration
			for i := 0; i < iterations; i++ {
				start := time.Now()
				got, err := codec.DecryptString(wire, priv)
				decryptTotal += time.Since(start)
				if err != nil {
					return fmt.Errorf("decrypt: %w", err)
				}
				if got != message {
					return fmt.Errorf("decrypt: round trip mismatch")
				}
			}
			fmt.Fprintf(out, "  Decrypt:  %v (avg, %d chars)\n", decryptTotal/time.Duration(iterations), len(message))

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Benchmark complete!")
			return nil
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 3, "iterations per operation")
	return cmd
}

// ============================================================================
// Config
// ============================================================================

func (a *cli) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	var path string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := config.WriteConfigFile(a.cfg, path, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", written)
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "path", "", "destination (default is the per-user config location)")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "bits:         %d\n", a.cfg.Bits)
			fmt.Fprintf(out, "rounds:       %d\n", a.cfg.Rounds)
			fmt.Fprintf(out, "max-attempts: %d\n", a.cfg.MaxAttempts)
			fmt.Fprintf(out, "key-dir:      %s\n", a.cfg.KeyDir)
			fmt.Fprintf(out, "store:        %s\n", a.cfg.Store)
			fmt.Fprintf(out, "log-level:    %s\n", a.cfg.LogLevel)
			return nil
		},
	}

	cmd.AddCommand(initCmd, show)
	return cmd
}
