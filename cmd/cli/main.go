package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/ledgerrecon/internal/adapter/http/dto"
	"github.com/iho/ledgerrecon/internal/domain"
)

type apiClient struct {
	baseURL string
	http    *http.Client
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
	)
	client := &apiClient{}

	rootCmd := &cobra.Command{
		Use:           "ledgerrecon-cli",
		Short:         "Ledger reconciliation and P&L CLI",
		Long:          `A command line interface for the ledgerrecon API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			client.baseURL = strings.TrimSuffix(baseURL, "/")
			client.http = &http.Client{Timeout: timeout}
		},
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the ledgerrecon API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "Request timeout")

	rootCmd.AddCommand(
		reconcileCmd(client),
		statementCmd(client),
		classifyCmd(client),
		taxCmd(client),
		auditCmd(client),
		eventsCmd(client),
		healthCmd(client),
	)

	return rootCmd
}

func reconcileCmd(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile cached balances against the entry log",
	}

	var autoCorrect, alert bool
	boolFlags := func(c *cobra.Command) {
		c.Flags().BoolVar(&autoCorrect, "auto-correct", false, "Write reconstructed balances back on discrepancy")
		c.Flags().BoolVar(&alert, "alert", true, "Emit a discrepancy alert")
	}
	applyFlags := func(c *cobra.Command, req *dto.ReconcileOwnerRequest) {
		if c.Flags().Changed("auto-correct") {
			req.AutoCorrect = &autoCorrect
		}
		if c.Flags().Changed("alert") {
			req.Alert = &alert
		}
	}

	ownerCmd := &cobra.Command{
		Use:   "owner <id>",
		Short: "Reconcile one owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var req dto.ReconcileOwnerRequest
			applyFlags(c, &req)
			return client.do(c.OutOrStdout(), http.MethodPost, "/api/v1/reconciliations/owners/"+url.PathEscape(args[0]), req)
		},
	}
	boolFlags(ownerCmd)

	var (
		kinds     []string
		ownerIDs  []string
		batchSize int
	)
	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Reconcile every matching owner",
		RunE: func(c *cobra.Command, args []string) error {
			var single dto.ReconcileOwnerRequest
			applyFlags(c, &single)
			return client.do(c.OutOrStdout(), http.MethodPost, "/api/v1/reconciliations", dto.ReconcileAllRequest{
				Kinds:       kinds,
				OwnerIDs:    ownerIDs,
				BatchSize:   batchSize,
				AutoCorrect: single.AutoCorrect,
				Alert:       single.Alert,
			})
		},
	}
	boolFlags(allCmd)
	allCmd.Flags().StringSliceVar(&kinds, "kind", nil, "Owner kinds to include (customer, supplier, account)")
	allCmd.Flags().StringSliceVar(&ownerIDs, "owner", nil, "Owner IDs to include")
	allCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Owners per page and concurrency bound")

	cmd.AddCommand(ownerCmd, allCmd)
	return cmd
}

func statementCmd(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Profit and loss statements",
	}

	var (
		period          periodFlags
		persist         bool
		comparePrevious bool
		compareBudget   bool
		incomeTaxRate   string
		payableAccount  string
	)
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a statement for a period",
		RunE: func(c *cobra.Command, args []string) error {
			p, err := period.request()
			if err != nil {
				return err
			}

			req := dto.GenerateStatementRequest{
				PeriodRequest:       p,
				CompareWithPrevious: comparePrevious,
				CompareWithBudget:   compareBudget,
				Persist:             persist,
			}
			if incomeTaxRate != "" {
				rate, err := decimal.NewFromString(incomeTaxRate)
				if err != nil {
					return fmt.Errorf("invalid --income-tax-rate: %w", err)
				}
				req.IncomeTax = &domain.IncomeTaxConfig{FlatRate: &rate}
			}
			if payableAccount != "" {
				req.SalesTax = &domain.SalesTaxConfig{PayableAccountCode: payableAccount}
			}

			return client.do(c.OutOrStdout(), http.MethodPost, "/api/v1/statements", req)
		},
	}
	period.register(generateCmd)
	generateCmd.Flags().BoolVar(&persist, "persist", false, "Store the statement")
	generateCmd.Flags().BoolVar(&comparePrevious, "compare-previous", false, "Compare with the previous period")
	generateCmd.Flags().BoolVar(&compareBudget, "compare-budget", false, "Compare with the period budget")
	generateCmd.Flags().StringVar(&incomeTaxRate, "income-tax-rate", "", "Flat income tax rate in percent")
	generateCmd.Flags().StringVar(&payableAccount, "sales-tax-account", "", "Sales tax payable account code")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch a stored statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return client.do(c.OutOrStdout(), http.MethodGet, "/api/v1/statements/"+url.PathEscape(args[0]), nil)
		},
	}

	cmd.AddCommand(generateCmd, getCmd)
	return cmd
}

func classifyCmd(client *apiClient) *cobra.Command {
	var (
		item  dto.ClassifyItem
		other bool
	)
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify one transaction",
		RunE: func(c *cobra.Command, args []string) error {
			if other {
				return client.do(c.OutOrStdout(), http.MethodPost, "/api/v1/classifications/other", dto.ClassifyOtherRequest{
					AccountCode: item.AccountCode,
					AccountName: item.AccountName,
				})
			}
			return client.do(c.OutOrStdout(), http.MethodPost, "/api/v1/classifications", dto.ClassifyRequest{Items: []dto.ClassifyItem{item}})
		},
	}
	cmd.Flags().StringVar(&item.AccountCode, "code", "", "Account code")
	cmd.Flags().StringVar(&item.AccountName, "name", "", "Account name")
	cmd.Flags().StringVar(&item.Description, "description", "", "Transaction description")
	cmd.Flags().StringSliceVar(&item.Tags, "tag", nil, "Transaction tags")
	cmd.Flags().BoolVar(&other, "other", false, "Classify as non-operating income or expense")
	return cmd
}

func taxCmd(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tax",
		Short: "Tax computations",
	}

	var (
		period         periodFlags
		payableAccount string
	)
	salesCmd := &cobra.Command{
		Use:   "sales",
		Short: "Compute sales tax for a period",
		RunE: func(c *cobra.Command, args []string) error {
			p, err := period.request()
			if err != nil {
				return err
			}
			return client.do(c.OutOrStdout(), http.MethodPost, "/api/v1/taxes/sales", dto.SalesTaxRequest{
				PeriodRequest:      p,
				PayableAccountCode: payableAccount,
			})
		},
	}
	period.register(salesCmd)
	salesCmd.Flags().StringVar(&payableAccount, "payable-account", "", "Sales tax payable account code")

	var ebt, rate string
	incomeCmd := &cobra.Command{
		Use:   "income",
		Short: "Compute flat-rate income tax",
		RunE: func(c *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(ebt)
			if err != nil {
				return fmt.Errorf("invalid --ebt: %w", err)
			}
			r, err := decimal.NewFromString(rate)
			if err != nil {
				return fmt.Errorf("invalid --rate: %w", err)
			}
			return client.do(c.OutOrStdout(), http.MethodPost, "/api/v1/taxes/income", dto.IncomeTaxRequest{
				IncomeTaxConfig:   domain.IncomeTaxConfig{FlatRate: &r},
				EarningsBeforeTax: amount,
			})
		},
	}
	incomeCmd.Flags().StringVar(&ebt, "ebt", "0", "Earnings before tax")
	incomeCmd.Flags().StringVar(&rate, "rate", "0", "Flat rate in percent")

	cmd.AddCommand(salesCmd, incomeCmd)
	return cmd
}

func auditCmd(client *apiClient) *cobra.Command {
	var (
		entityID, runID, action string
		limit                   int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List reconciliation audit records",
		RunE: func(c *cobra.Command, args []string) error {
			q := url.Values{}
			if entityID != "" {
				q.Set("entity_id", entityID)
			}
			if runID != "" {
				q.Set("run_id", runID)
			}
			if action != "" {
				q.Set("action", action)
			}
			if limit > 0 {
				q.Set("limit", fmt.Sprint(limit))
			}

			path := "/api/v1/audit"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			return client.do(c.OutOrStdout(), http.MethodGet, path, nil)
		},
	}
	cmd.Flags().StringVar(&entityID, "entity", "", "Owner ID")
	cmd.Flags().StringVar(&runID, "run", "", "Reconciliation run ID")
	cmd.Flags().StringVar(&action, "action", "", "Audit action")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum records")
	return cmd
}

func eventsCmd(client *apiClient) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events <owner|statement> <id>",
		Short: "List queued and published events",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			path := "/api/v1/events/" + url.PathEscape(args[0]) + "/" + url.PathEscape(args[1])
			if limit > 0 {
				path += "?limit=" + fmt.Sprint(limit)
			}
			return client.do(c.OutOrStdout(), http.MethodGet, path, nil)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum events")
	return cmd
}

func healthCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check service readiness",
		RunE: func(c *cobra.Command, args []string) error {
			return client.do(c.OutOrStdout(), http.MethodGet, "/ready", nil)
		},
	}
}

// periodFlags binds --start, --end and --type.
type periodFlags struct {
	start, end, periodType string
}

func (p *periodFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.start, "start", "", "Period start (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&p.end, "end", "", "Period end, inclusive (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&p.periodType, "type", "", "Period type: month, quarter, year or custom")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

func (p *periodFlags) request() (dto.PeriodRequest, error) {
	start, err := parseDate(p.start, false)
	if err != nil {
		return dto.PeriodRequest{}, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := parseDate(p.end, true)
	if err != nil {
		return dto.PeriodRequest{}, fmt.Errorf("invalid --end: %w", err)
	}
	return dto.PeriodRequest{StartDate: start, EndDate: end, PeriodType: p.periodType}, nil
}

// parseDate accepts RFC 3339 or a bare date. A bare end date covers the
// whole day.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}

// do sends body as JSON and pretty-prints the response to out. Non-2xx
// responses are returned as errors.
func (c *apiClient) do(out io.Writer, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Message != "" {
				return fmt.Errorf("%s (status %d): %s", apiErr.Error, resp.StatusCode, apiErr.Message)
			}
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		// 409 on a lost correction race carries the reconciliation result.
		printJSON(out, data)
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	printJSON(out, data)
	return nil
}

// printJSON indents raw JSON, falling back to the bytes as-is.
func printJSON(out io.Writer, data []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		fmt.Fprintln(out, string(data))
		return
	}
	fmt.Fprintln(out, buf.String())
}
