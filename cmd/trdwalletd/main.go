// TRD wallet sync daemon.
//
// Usage:
//
//	trdwalletd --xpub=<key> [--indexer=<url>] Run the wallet engine
//	trdwalletd --help                       Show help
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/trd-wallet/config"
	"github.com/Klingon-tech/trd-wallet/internal/node"
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"golang.org/x/term"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	switch {
	case flags.Help:
		config.PrintUsage(os.Stdout)
		return
	case flags.Version:
		fmt.Printf("trdwalletd %s\n", version)
		return
	}

	n, err := node.New(cfg)
	if errors.Is(err, wallet.ErrSealed) && term.IsTerminal(int(syscall.Stdin)) {
		// The stored snapshot is sealed; ask for the passphrase once.
		pass, perr := readPassword("Wallet passphrase: ")
		if perr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", perr)
			os.Exit(1)
		}
		cfg.Storage.Passphrase = string(pass)
		n, err = node.New(cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, wallet.ErrSealed) {
			fmt.Fprintf(os.Stderr, "Set %s or storage.passphrase to unseal the stored wallet.\n", config.PassphraseEnv)
		}
		os.Exit(1)
	}

	if err := n.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		n.Stop()
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigCh:
	case <-n.Done():
		if err := n.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = 1
		}
	}

	n.Stop()
	os.Exit(exitCode)
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}
