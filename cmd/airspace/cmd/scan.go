package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"airspace_fan/internal/models"
	"airspace_fan/internal/scanner"
	"airspace_fan/internal/transport"
)

var (
	scanJSON bool

	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Probe the configured addresses once and list the fans found",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return scanOnce(cmd.OutOrStdout())
		},
	}
)

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print results as JSON lines")
}

func scanOnce(out io.Writer) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	candidates, err := scanner.Candidates(cfg.Scan.CIDR, cfg.Scan.Hosts, cfg.Scan.Port)
	if err != nil {
		return err
	}
	tr := transport.NewHTTP(transport.WithTimeout(cfg.Scan.ProbeTimeout), transport.WithLogger(log.Named("transport")))
	sc := scanner.New(tr, candidates,
		scanner.WithWorkers(cfg.Scan.Workers),
		scanner.WithLogger(log.Named("scanner")),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := sc.Scan(ctx)
	if err != nil {
		return err
	}
	var found []models.ScanResult
	for res := range stream.Results() {
		found = append(found, res)
	}
	if err := stream.Wait(); err != nil {
		log.Warnw("scan interrupted", "err", err, "found", len(found))
	}
	return printScan(out, found, scanJSON)
}

func printScan(out io.Writer, found []models.ScanResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		for _, res := range found {
			if err := enc.Encode(res); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tMAC\tMODEL\tSPEED\tTIMER\tDAMPER\tINTERLOCK")
	for _, res := range found {
		c := res.Chars
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%dh\t%v\t%t\n",
			res.Address, c.MACAddr, c.Model, c.Speed, c.TimerHoursRemaining, c.Damper, c.InterlockAsserted())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d fan(s) found\n", len(found))
	return err
}
