package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/proofstream/proofstream/internal/receipt"
)

func newVerifyCommand(a *app) *cobra.Command {
	var (
		dir    string
		tamper bool
	)

	cmd := &cobra.Command{
		Use:   "verify [receipt]",
		Short: "Verify a receipt, or the most recent one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.Receipts.Dir
			}

			var path string
			var err error
			if len(args) == 1 {
				path = args[0]
			} else {
				path, err = receipt.Latest(dir)
				if err != nil {
					return fmt.Errorf("no receipts found in %q; run 'proofstream stream --save-receipt' to create one", dir)
				}
			}

			rec, err := receipt.Load(path)
			if err != nil {
				return err
			}

			report := receipt.Verify(rec)
			label := ""
			if tamper {
				label = "VERIFICATION"
			}
			printReport(path, report, label)

			if tamper {
				// The mutation happens on an in-memory copy; the artifact on
				// disk stays untouched.
				tamperedReport := receipt.Verify(receipt.Tamper(rec))
				fmt.Println()
				printReport(path+" [tampered]", tamperedReport,
					"TAMPER SIMULATION: injected fake token at event midpoint")
			}

			if !report.Verified() {
				return fmt.Errorf("receipt rejected")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "receipt directory (default: configured dir)")
	cmd.Flags().BoolVar(&tamper, "tamper", false, "also run a tamper simulation")
	return cmd
}

const reportWidth = 62

func printReport(path string, report *receipt.Report, label string) {
	rule := strings.Repeat("─", reportWidth)

	if label != "" {
		fmt.Printf("\n%s\n  %s\n", rule, label)
	}
	fmt.Println(rule)
	fmt.Printf("  Receipt  : %s\n", path)
	fmt.Printf("  Model    : %s\n", report.Model)
	fmt.Printf("  Events   : %d  |  Tokens: %d prompt + %d completion\n\n",
		report.EventCount, report.PromptTokens, report.CompletionTokens)

	for _, check := range report.Checks {
		icon := "–"
		switch check.Status {
		case receipt.StatusPass:
			icon = "✓"
		case receipt.StatusFail:
			icon = "✗"
		}
		fmt.Printf("  %s [%s] %-16s %s\n", icon, check.Status, check.Name, check.Detail)
	}

	fmt.Println()
	if report.Verified() {
		fmt.Println("  Status: VERIFIED ✓")
	} else {
		reasons := ""
		for _, check := range report.Checks {
			if check.Status == receipt.StatusFail {
				if reasons != "" {
					reasons += ", "
				}
				reasons += check.Name
			}
		}
		fmt.Printf("  Status: REJECTED ✗  (reason: %s)\n", reasons)
	}
	fmt.Println(rule)
}
