package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cartdesk/cartdesk/internal/bot"
	"github.com/cartdesk/cartdesk/internal/request"
)

func newReqCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "req",
		Short: "Inspect and manage supply requests",
	}

	cmd.AddCommand(newReqListCmd())
	cmd.AddCommand(newReqShowCmd())
	cmd.AddCommand(newReqHistoryCmd())
	cmd.AddCommand(newReqStatusCmd())
	cmd.AddCommand(newReqSummaryCmd())
	return cmd
}

func newReqListCmd() *cobra.Command {
	var (
		configPath string
		status     string
		branchID   uint
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			filters := request.ListFilters{Status: status, BranchID: branchID, Limit: limit}
			return printRequestList(cmd.OutOrStdout(), request.NewStore(gormDB), filters)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CartDesk config file")
	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status")
	cmd.Flags().UintVarP(&branchID, "branch", "b", 0, "filter by branch ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "max rows (0 = all)")
	return cmd
}

func printRequestList(out io.Writer, store *request.Store, filters request.ListFilters) error {
	reqs, err := store.List(filters)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, bot.FormatRequestList(reqs))
	return nil
}

func newReqShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <code>",
		Short: "Show one request in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			return printRequest(cmd.OutOrStdout(), request.NewStore(gormDB), args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CartDesk config file")
	return cmd
}

func printRequest(out io.Writer, store *request.Store, code string) error {
	req, err := store.GetByCode(code)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, bot.FormatRequest(req))
	return nil
}

func newReqHistoryCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "history <code>",
		Short: "Show the audit trail of a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), request.NewStore(gormDB), args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CartDesk config file")
	return cmd
}

func printHistory(out io.Writer, store *request.Store, code string) error {
	entries, err := store.History(code)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, bot.FormatHistory(code, entries))
	return nil
}

func newReqStatusCmd() *cobra.Command {
	var (
		configPath string
		note       string
	)

	cmd := &cobra.Command{
		Use:   "status <code> <new-status>",
		Short: "Change the status of a request",
		Long:  "Applies a status transition as an administrative action. The audit entry carries no actor.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			return changeStatus(cmd.OutOrStdout(), request.NewStore(gormDB), args[0], args[1], note)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CartDesk config file")
	cmd.Flags().StringVar(&note, "note", "", "note to record in the audit trail")
	return cmd
}

func changeStatus(out io.Writer, store *request.Store, code, to, note string) error {
	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	req, err := store.UpdateStatus(code, to, nil, notePtr)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Request %s is now %s.\n", req.Code, req.Status)
	return nil
}

func newReqSummaryCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show request counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), request.NewStore(gormDB))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CartDesk config file")
	return cmd
}

func printSummary(out io.Writer, store *request.Store) error {
	counts, err := store.Summary()
	if err != nil {
		return err
	}
	byStatus := make(map[string]int, len(counts))
	for _, c := range counts {
		byStatus[c.Status] = c.Count
	}
	fmt.Fprintln(out, bot.FormatSummary(byStatus))
	return nil
}
