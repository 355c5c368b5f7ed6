// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sigil-dev/lyph/internal/secrets"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/spf13/cobra"
)

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets stored in the OS keyring",
		Long: "Store and delete secrets under the lyph service in the operating system keyring. " +
			"Config values of the form keyring://lyph/<key> are resolved from here at load time.",
	}

	cmd.AddCommand(
		newSecretSetCmd(),
		newSecretDeleteCmd(),
	)

	return cmd
}

func newSecretSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key>",
		Short: "Store a secret read from stdin",
		Example: "  printf '%s' \"$DSN\" | lyph secret set postgres_dsn\n" +
			"  lyph secret set s3_secret_access_key < key.txt",
		Args: cobra.ExactArgs(1),
		RunE: runSecretSet,
	}
}

func newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a secret by key",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretDelete,
	}
}

// readSecret returns the first line of r without its line ending.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", lypherr.Errorf(lypherr.CodeCLIInputInvalid, "reading secret: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value, err := readSecret(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if value == "" {
		return lypherr.New(lypherr.CodeCLIInputInvalid, "secret value must not be empty (pipe it on stdin)")
	}

	if err := secretStoreFactory().Set(secrets.DefaultService, key, value); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored secret %s\nReference it in config as %s\n",
		key, secrets.URI(secrets.DefaultService, key))
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	key := args[0]
	if err := secretStoreFactory().Delete(secrets.DefaultService, key); err != nil {
		if lypherr.HasCode(err, lypherr.CodeSecretNotFound) {
			return lypherr.Errorf(lypherr.CodeSecretNotFound, "secret %q not found", key)
		}
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret: %s\n", key)
	return nil
}
