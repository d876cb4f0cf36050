package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/core/services"
	"github.com/ledgermap/ledgermap_backend/internal/dto"
	"github.com/ledgermap/ledgermap_backend/internal/platform/config"
	"github.com/ledgermap/ledgermap_backend/internal/repositories/database/pgsql"
	"github.com/ledgermap/ledgermap_backend/pkg/database"
)

// ledgermap_admin seeds reference data the mapping engine depends on: the
// canonical chart of accounts and firm rule packs. Both run against the same
// database and services as the API server, so all insert validation applies.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:          "ledgermap_admin",
		Short:        "Operations tooling for the LedgerMap mapping engine",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().String("as-user", "system", "user ID the command runs as; must hold the role the operation requires (platform admin for COA, firm admin for rules)")

	coaCmd := &cobra.Command{
		Use:   "coa",
		Short: "Canonical chart of accounts administration",
	}
	coaCmd.AddCommand(newCOAImportCmd())

	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Firm mapping rule administration",
	}
	rulesCmd.AddCommand(newRulesImportCmd())

	rootCmd.AddCommand(coaCmd, rulesCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newServices wires repositories and services against the configured database.
func newServices(ctx context.Context) (*servicesBundle, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repos := pgsql.NewRepositoryProvider(dbPool)
	container := services.NewServiceContainer(cfg, repos, nil, nil, nil)

	return &servicesBundle{container: container, close: dbPool.Close}, nil
}

type servicesBundle struct {
	container *portssvc.ServiceContainer
	close     func()
}

func newCOAImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import the canonical chart of accounts from CSV",
		Long: `Import canonical accounts from a CSV file with the header
code,name,type,subtype,parent_code,is_leaf,normal_balance,concept_tag.
Rows must list parents before children; the whole tree is validated before
anything is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asUser, _ := cmd.Flags().GetString("as-user")

			rows, err := readCSV(args[0])
			if err != nil {
				return err
			}

			req, err := parseAccountRows(rows)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			bundle, err := newServices(ctx)
			if err != nil {
				return err
			}
			defer bundle.close()

			accounts, err := bundle.container.COA.ImportAccounts(ctx, *req, asUser)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d canonical accounts\n", len(accounts))
			return nil
		},
	}
	return cmd
}

func newRulesImportCmd() *cobra.Command {
	var firmID string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a firm rule pack from CSV",
		Long: `Import mapping rules from a CSV file with the header
name,pattern,is_regex,match_mode,target_account_code,priority,confidence_boost.
Each rule is validated individually; the first invalid row aborts the import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asUser, _ := cmd.Flags().GetString("as-user")

			rows, err := readCSV(args[0])
			if err != nil {
				return err
			}

			reqs, err := parseRuleRows(rows)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			bundle, err := newServices(ctx)
			if err != nil {
				return err
			}
			defer bundle.close()

			for i, req := range reqs {
				if _, err := bundle.container.Rule.CreateRule(ctx, firmID, req, asUser); err != nil {
					return fmt.Errorf("rule %q (row %d): %w", req.Name, i+2, err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rules for firm %s\n", len(reqs), firmID)
			return nil
		},
	}

	cmd.Flags().StringVar(&firmID, "firm", "", "firm ID the rules belong to")
	_ = cmd.MarkFlagRequired("firm")
	return cmd
}

// readCSV loads a CSV file and returns its rows without the header.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s contains no data rows", path)
	}
	return rows, nil
}

// parseAccountRows converts CSV rows into an account import request.
// Expected columns: code,name,type,subtype,parent_code,is_leaf,normal_balance,concept_tag
func parseAccountRows(rows [][]string) (*dto.ImportAccountsRequest, error) {
	req := &dto.ImportAccountsRequest{Accounts: make([]dto.CreateAccountRequest, 0, len(rows))}
	for i, row := range rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("row %d: expected at least 7 columns, got %d", i+2, len(row))
		}
		isLeaf, err := strconv.ParseBool(row[5])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid is_leaf %q", i+2, row[5])
		}
		acc := dto.CreateAccountRequest{
			Code:          row[0],
			Name:          row[1],
			AccountType:   domain.AccountType(row[2]),
			Subtype:       row[3],
			ParentCode:    row[4],
			IsLeaf:        isLeaf,
			NormalBalance: domain.NormalBalance(row[6]),
		}
		if len(row) > 7 {
			acc.ConceptTag = row[7]
		}
		req.Accounts = append(req.Accounts, acc)
	}
	return req, nil
}

// parseRuleRows converts CSV rows into rule creation requests.
// Expected columns: name,pattern,is_regex,match_mode,target_account_code,priority,confidence_boost
func parseRuleRows(rows [][]string) ([]dto.CreateRuleRequest, error) {
	reqs := make([]dto.CreateRuleRequest, 0, len(rows))
	for i, row := range rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("row %d: expected 7 columns, got %d", i+2, len(row))
		}
		isRegex, err := strconv.ParseBool(row[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid is_regex %q", i+2, row[2])
		}
		priority, err := strconv.Atoi(row[5])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid priority %q", i+2, row[5])
		}
		boost, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid confidence_boost %q", i+2, row[6])
		}
		reqs = append(reqs, dto.CreateRuleRequest{
			Name:              row[0],
			Pattern:           row[1],
			IsRegex:           isRegex,
			MatchMode:         domain.MatchMode(row[3]),
			TargetAccountCode: row[4],
			Priority:          priority,
			ConfidenceBoost:   boost,
		})
	}
	return reqs, nil
}
