package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	appctx "postingcore/internal/core/context"
	"postingcore/internal/domain/posting"
	"postingcore/internal/infrastructure/input"
	"postingcore/pkg/logger"
)

// report is the outcome for one posting of one input file. Exactly one of
// Result and Error is set.
type report struct {
	File      string          `json:"file"`
	Index     int             `json:"index"`
	Reference string          `json:"reference,omitempty"`
	Result    *posting.Result `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (r report) ok() bool {
	return r.Error == "" && r.Result != nil && r.Result.Valid()
}

func validateCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate posting files and print the results as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := openApp(cmd.Context(), f)
			if err != nil {
				return err
			}
			defer a.Close()

			reports := validateFiles(ctx, a.validator, args)
			if err := writeReports(cmd.OutOrStdout(), reports); err != nil {
				return err
			}
			for _, r := range reports {
				if !r.ok() {
					return errFindings
				}
			}
			return nil
		},
	}
}

// validateFiles validates every posting of every file. A file that cannot
// be read yields a single report carrying the error.
func validateFiles(ctx context.Context, v *posting.Validator, paths []string) []report {
	var reports []report
	for _, path := range paths {
		file, err := input.ReadFile(path)
		if err != nil {
			reports = append(reports, report{File: path, Error: err.Error()})
			continue
		}
		for i, doc := range file.Postings {
			r := report{File: path, Index: i, Reference: doc.Reference}
			p, err := doc.ToPosting()
			if err != nil {
				r.Error = err.Error()
				reports = append(reports, r)
				continue
			}
			pctx := appctx.WithTrace(ctx, appctx.NewTraceContext(doc.Reference))
			result, err := v.ValidatePosting(pctx, p)
			if err != nil {
				logger.Warn(pctx, "posting not validated", "file", path, "index", i, "error", err)
				r.Error = err.Error()
			} else {
				r.Result = &result
			}
			reports = append(reports, r)
		}
	}
	return reports
}

func writeReports(w io.Writer, reports []report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
