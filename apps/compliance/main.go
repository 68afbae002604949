// Command compliance runs the fiscal compliance checks once and exits.
// Exit code 0 means clean; 1 means compliance issues were found or work
// failed. Cron-friendly counterpart to the in-process scheduler.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fattura/internal/clock"
	"github.com/smallbiznis/fattura/internal/config"
	invoicedomain "github.com/smallbiznis/fattura/internal/invoice/domain"
	"github.com/smallbiznis/fattura/internal/logger"
	organizationdomain "github.com/smallbiznis/fattura/internal/organization/domain"
	organizationrepository "github.com/smallbiznis/fattura/internal/organization/repository"
	preservationdomain "github.com/smallbiznis/fattura/internal/preservation/domain"
	preservationservice "github.com/smallbiznis/fattura/internal/preservation/service"
	"github.com/smallbiznis/fattura/internal/preservation/storage"
	retentiondomain "github.com/smallbiznis/fattura/internal/retention/domain"
	retentionservice "github.com/smallbiznis/fattura/internal/retention/service"
	"github.com/smallbiznis/fattura/pkg/db"
	"github.com/smallbiznis/fattura/pkg/tenantctx"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	app, err := buildApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "compliance: %v\n", err)
		os.Exit(1)
	}
	defer app.log.Sync()

	ctx := context.Background()

	var clean bool
	switch os.Args[1] {
	case "check-expiring-preservations":
		fs := flag.NewFlagSet("check-expiring-preservations", flag.ExitOnError)
		days := fs.Int("days", app.cfg.ExpiryWarningDays, "warning window in days")
		verify := fs.Bool("verify-integrity", false, "re-hash stored artifacts of expiring invoices")
		_ = fs.Parse(os.Args[2:])
		clean, err = app.checkExpiring(ctx, *days, *verify)
	case "preserve-accepted-invoices":
		fs := flag.NewFlagSet("preserve-accepted-invoices", flag.ExitOnError)
		force := fs.Bool("force", false, "re-preserve even if already preserved")
		limit := fs.Int("limit", app.cfg.SchedulerBatchSize, "batch size per pass")
		_ = fs.Parse(os.Args[2:])
		clean, err = app.preserveAccepted(ctx, *force, *limit)
	case "anonymize-invoices":
		fs := flag.NewFlagSet("anonymize-invoices", flag.ExitOnError)
		dryRun := fs.Bool("dry-run", false, "select but do not mutate")
		_ = fs.Parse(os.Args[2:])
		clean, err = app.anonymizeExpired(ctx, *dryRun)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "compliance: %v\n", err)
		os.Exit(1)
	}
	if !clean {
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: compliance <command> [flags]

commands:
  check-expiring-preservations [-days N] [-verify-integrity]
  preserve-accepted-invoices   [-force] [-limit N]
  anonymize-invoices           [-dry-run]`)
}

type app struct {
	cfg          config.Config
	log          *zap.Logger
	tenants      organizationdomain.TenantLister
	preservation preservationdomain.Service
	retention    retentiondomain.Service
}

func buildApp() (*app, error) {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	conn, err := db.New(cfg)
	if err != nil {
		return nil, err
	}

	clk := clock.NewSystemClock()

	return &app{
		cfg:     cfg,
		log:     log.Named("compliance"),
		tenants: organizationrepository.NewRepository(conn),
		preservation: preservationservice.NewService(preservationservice.ServiceParam{
			DB:      conn,
			Log:     log,
			Clock:   clk,
			Storage: storage.NewFS(cfg.ArtifactDir),
			Config:  cfg,
		}),
		retention: retentionservice.NewService(retentionservice.ServiceParam{
			DB:     conn,
			Log:    log,
			Clock:  clk,
			Config: cfg,
		}),
	}, nil
}

func (a *app) eachTenant(ctx context.Context, fn func(ctx context.Context, orgID snowflake.ID) error) error {
	ids, err := a.tenants.ListIDs(ctx)
	if err != nil {
		return err
	}
	for _, orgID := range ids {
		if err := fn(tenantctx.WithTenantID(ctx, orgID), orgID); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) checkExpiring(ctx context.Context, days int, verify bool) (bool, error) {
	clean := true
	err := a.eachTenant(ctx, func(ctx context.Context, orgID snowflake.ID) error {
		expiring, err := a.preservation.GetExpiringSoon(ctx, days)
		if err != nil {
			return err
		}
		if len(expiring) == 0 {
			return nil
		}
		clean = false
		fmt.Printf("org %s: %d preservation(s) expiring within %d days\n", orgID, len(expiring), days)

		if !verify {
			return nil
		}
		for _, inv := range expiring {
			report, err := a.preservation.VerifyIntegrity(ctx, inv.ID)
			if err != nil {
				fmt.Printf("org %s: %s: integrity check failed: %v\n", orgID, inv.TransmissionID, err)
				continue
			}
			if !report.Clean() {
				fmt.Printf("org %s: %s: INTEGRITY MISMATCH %v\n", orgID, inv.TransmissionID, report.Errors)
			}
		}
		return nil
	})
	return clean, err
}

func (a *app) preserveAccepted(ctx context.Context, force bool, limit int) (bool, error) {
	clean := true
	err := a.eachTenant(ctx, func(ctx context.Context, orgID snowflake.ID) error {
		if force {
			// Forced runs re-preserve already-preserved invoices, so those
			// rows stay selectable after the batch. One pass, no re-list.
			accepted, err := a.preservation.ListAccepted(ctx, limit)
			if err != nil {
				return err
			}
			if len(accepted) == 0 {
				return nil
			}
			result := a.preservation.PreserveBatch(ctx, invoiceIDs(accepted), true)
			clean = a.printBatch(orgID, result) && clean
			return nil
		}

		for {
			eligible, err := a.preservation.ListEligible(ctx, limit)
			if err != nil {
				return err
			}
			if len(eligible) == 0 {
				return nil
			}

			result := a.preservation.PreserveBatch(ctx, invoiceIDs(eligible), false)
			clean = a.printBatch(orgID, result) && clean
			// Failed items stay eligible; without forward progress a retry
			// loop would spin on them.
			if result.Success == 0 {
				return nil
			}
		}
	})
	return clean, err
}

func invoiceIDs(invoices []invoicedomain.ElectronicInvoice) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	return ids
}

func (a *app) printBatch(orgID snowflake.ID, result preservationdomain.BatchResult) bool {
	fmt.Printf("org %s: preserved=%d skipped=%d failed=%d\n", orgID, result.Success, result.Skipped, result.Failed)
	for _, item := range result.Errors {
		fmt.Printf("org %s: %s: %s\n", orgID, item.TransmissionID, item.Message)
	}
	return result.Failed == 0
}

func (a *app) anonymizeExpired(ctx context.Context, dryRun bool) (bool, error) {
	clean := true
	err := a.eachTenant(ctx, func(ctx context.Context, orgID snowflake.ID) error {
		result, err := a.retention.AnonymizeExpired(ctx, dryRun)
		if err != nil {
			return err
		}
		fmt.Printf("org %s: found=%d anonymized=%d failed=%d dry_run=%v\n",
			orgID, result.TotalFound, result.Anonymized, result.Failed, result.DryRun)
		if result.Failed > 0 {
			clean = false
		}
		for _, item := range result.Errors {
			fmt.Printf("org %s: %s: %s\n", orgID, item.TransmissionID, item.Message)
		}
		return nil
	})
	return clean, err
}
