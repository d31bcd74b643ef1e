// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ManuGH/hlsvault/internal/ledger"
	"github.com/ManuGH/hlsvault/internal/persistence/sqlite"
	"github.com/ManuGH/hlsvault/internal/version"
)

func runStatus(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("status", stderr)
	ledgerPath := fs.String("ledger", "", "ledger database path (overrides config)")
	asset := fs.String("asset", "", "print the full history of one asset")
	verify := fs.String("verify", "", "run an integrity check first: quick or full")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := *ledgerPath
	if path == "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		path = cfg.Packager.LedgerPath
	}
	if path == "" {
		_, _ = fmt.Fprintln(stderr, "Error: no ledger configured (set HLSVAULT_LEDGER_PATH or --ledger)")
		return 2
	}

	ctx := context.Background()
	if mode := strings.ToLower(strings.TrimSpace(*verify)); mode != "" {
		if code := verifyLedger(ctx, stdout, stderr, path, mode); code != 0 {
			return code
		}
	}

	store, err := ledger.Open(ctx, path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	if *asset != "" {
		return printHistory(ctx, stdout, stderr, store, *asset)
	}
	return printLedger(ctx, stdout, stderr, store)
}

func verifyLedger(ctx context.Context, stdout, stderr io.Writer, path, mode string) int {
	if mode != string(sqlite.CheckQuick) && mode != string(sqlite.CheckFull) {
		_, _ = fmt.Fprintf(stderr, "Error: invalid mode %q. Use 'quick' or 'full'.\n", mode)
		return 2
	}
	issues, err := sqlite.VerifyIntegrity(ctx, path, sqlite.CheckMode(mode))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Verification failed: %v\n", err)
		return 1
	}
	if len(issues) > 0 {
		_, _ = fmt.Fprintln(stderr, "Ledger corruption detected:")
		for _, issue := range issues {
			_, _ = fmt.Fprintf(stderr, "  - %s\n", issue)
		}
		return 1
	}
	_, _ = fmt.Fprintln(stdout, "Integrity verified: ok")
	return 0
}

func printLedger(ctx context.Context, stdout, stderr io.Writer, store *ledger.Store) int {
	entries, err := store.List(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ASSET\tSTATE\tUPDATED\tSOURCE\tREASON")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.AssetID, e.State, e.UpdatedAt.UTC().Format(time.RFC3339), e.Source, e.Reason)
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(stdout, "%d assets (%s)\n", len(entries), version.String())
	return 0
}

func printHistory(ctx context.Context, stdout, stderr io.Writer, store *ledger.Store, id string) int {
	events, err := store.History(ctx, id)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(events) == 0 {
		_, _ = fmt.Fprintf(stderr, "Error: asset %q not found in ledger\n", id)
		return 1
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "AT\tSTATE\tREASON")
	for _, ev := range events {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", ev.At.UTC().Format(time.RFC3339), ev.State, ev.Reason)
	}
	_ = tw.Flush()
	return 0
}

func runVersion(stdout io.Writer) int {
	_, _ = fmt.Fprintln(stdout, version.String())
	return 0
}
