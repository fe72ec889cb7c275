package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"postingcore/internal/domain/fieldrules"
	"postingcore/internal/infrastructure/storage/postgres/rule_repo"
)

func rulesCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the rule configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Load every rule set and check that every account group has a default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := openApp(cmd.Context(), f)
			if err != nil {
				return err
			}
			defer a.Close()

			problems, err := verifyRules(ctx, a.store, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if problems > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d problem(s) found\n", problems)
				return errFindings
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rules ok")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the PostgreSQL schema of the rule store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), rule_repo.Schema)
			return err
		},
	})

	return cmd
}

// verifyRules writes one line per finding and returns how many problems it
// found. Inactive rule sets are reported but are not problems.
func verifyRules(ctx context.Context, store fieldrules.Store, w io.Writer) (int, error) {
	sets, ok := store.(fieldrules.RuleSetLister)
	if !ok {
		return 0, errors.New("rule store cannot list rule sets")
	}
	groups, ok := store.(fieldrules.AccountGroupLister)
	if !ok {
		return 0, errors.New("rule store cannot list account groups")
	}

	problems := 0

	ids, err := sets.ListRuleSetIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		rs, err := store.LoadRuleSet(ctx, id)
		switch {
		case err != nil:
			problems++
			fmt.Fprintf(w, "rule set %s: %v\n", id, err)
		case !rs.Active():
			fmt.Fprintf(w, "rule set %s: inactive\n", id)
		}
	}

	names, err := groups.ListAccountGroups(ctx)
	if err != nil {
		return 0, err
	}
	for _, group := range names {
		id, ok, err := store.LookupAccountGroupDefault(ctx, group)
		if err != nil {
			return 0, err
		}
		if !ok {
			problems++
			fmt.Fprintf(w, "account group %s: no default rule set\n", group)
			continue
		}
		if _, err := store.LoadRuleSet(ctx, id); err != nil {
			problems++
			fmt.Fprintf(w, "account group %s: default %s: %v\n", group, id, err)
		}
	}
	return problems, nil
}
