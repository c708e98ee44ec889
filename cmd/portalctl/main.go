// portalctl is the operator CLI: admin bootstrap, credit adjustments, and
// read-only inspection of plans and capabilities without going through the
// HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/veriport/veriport/internal/auth"
	"github.com/veriport/veriport/internal/config"
	"github.com/veriport/veriport/internal/directory"
	dirpostgres "github.com/veriport/veriport/internal/directory/postgres"
	dirsqlite "github.com/veriport/veriport/internal/directory/sqlite"
	"github.com/veriport/veriport/internal/ledger"
	ledpostgres "github.com/veriport/veriport/internal/ledger/postgres"
	ledsqlite "github.com/veriport/veriport/internal/ledger/sqlite"
	"github.com/veriport/veriport/internal/seed"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadPortalConfig(".")
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	ctx := context.Background()
	switch os.Args[1] {
	case "bootstrap-admin":
		runBootstrapAdmin(ctx, cfg, os.Args[2:])
	case "topup":
		runTopup(ctx, cfg, os.Args[2:])
	case "officers":
		runOfficers(ctx, cfg)
	case "plans":
		runPlans(ctx, cfg)
	case "capabilities":
		runCapabilities(ctx, cfg)
	case "seed":
		runSeed(ctx, cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: portalctl <command> [flags]

commands:
  bootstrap-admin  create or verify the root admin account
  topup            credit an officer's balance
  officers         list officer accounts
  plans            list rate plans
  capabilities     list the capability routing table
  seed             apply a capabilities YAML file`)
}

func openDirectory(cfg config.PortalConfig) directory.Store {
	var store directory.Store
	var err error
	if config.IsPostgresDSN(cfg.DirectoryPath) {
		store, err = dirpostgres.New(cfg.DirectoryPath)
	} else {
		store, err = dirsqlite.New(cfg.DirectoryPath)
	}
	if err != nil {
		log.Fatalf("open directory store: %v", err)
	}
	return store
}

func openLedger(cfg config.PortalConfig) ledger.Store {
	var store ledger.Store
	var err error
	if config.IsPostgresDSN(cfg.LedgerPath) {
		store, err = ledpostgres.New(cfg.LedgerPath)
	} else {
		store, err = ledsqlite.New(cfg.LedgerPath)
	}
	if err != nil {
		log.Fatalf("open ledger store: %v", err)
	}
	return store
}

func runBootstrapAdmin(ctx context.Context, cfg config.PortalConfig, args []string) {
	fs := flag.NewFlagSet("bootstrap-admin", flag.ExitOnError)
	email := fs.String("email", cfg.AdminEmail, "root admin email")
	password := fs.String("password", cfg.AdminPassword, "root admin password")
	_ = fs.Parse(args)

	if strings.TrimSpace(*email) == "" || *password == "" {
		log.Fatal("email and password required (flags or config)")
	}
	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	store := openDirectory(cfg)
	defer store.Close()
	admin, err := store.EnsureRootAdmin(ctx, *email, hash)
	if err != nil {
		log.Fatalf("ensure root admin: %v", err)
	}
	fmt.Printf("root admin ready id=%d email=%s\n", admin.ID, admin.Email)
}

func runTopup(ctx context.Context, cfg config.PortalConfig, args []string) {
	fs := flag.NewFlagSet("topup", flag.ExitOnError)
	officerID := fs.Int64("officer", 0, "officer id")
	email := fs.String("email", "", "officer email (alternative to -officer)")
	credits := fs.Int64("credits", 0, "credits to add")
	remark := fs.String("remark", "manual topup via portalctl", "transaction remark")
	_ = fs.Parse(args)

	if *credits <= 0 {
		log.Fatal("-credits must be positive")
	}
	store := openDirectory(cfg)
	defer store.Close()
	journal := openLedger(cfg)
	defer journal.Close()

	id := *officerID
	if id == 0 {
		if strings.TrimSpace(*email) == "" {
			log.Fatal("-officer or -email required")
		}
		officer, err := store.FindOfficerByEmail(ctx, strings.ToLower(strings.TrimSpace(*email)))
		if err != nil {
			log.Fatalf("find officer: %v", err)
		}
		id = officer.ID
	}

	if err := store.CreditCredits(ctx, id, *credits, true); err != nil {
		log.Fatalf("credit: %v", err)
	}
	if err := journal.RecordTransaction(ctx, ledger.Transaction{
		OfficerID: id,
		Action:    ledger.ActionTopup,
		Credits:   *credits,
		Remark:    *remark,
	}); err != nil {
		log.Fatalf("reconcile manually: topup applied but not journaled: %v", err)
	}
	officer, err := store.GetOfficer(ctx, id)
	if err != nil {
		log.Fatalf("get officer: %v", err)
	}
	fmt.Printf("officer %d balance %d/%d\n", officer.ID, officer.CreditsRemaining, officer.TotalCredits)
}

func runOfficers(ctx context.Context, cfg config.PortalConfig) {
	store := openDirectory(cfg)
	defer store.Close()
	officers, err := store.ListOfficers(ctx)
	if err != nil {
		log.Fatalf("list officers: %v", err)
	}
	for _, o := range officers {
		plan := "-"
		if o.PlanID != nil {
			plan = fmt.Sprintf("%d", *o.PlanID)
		}
		fmt.Printf("%-5d %-30s %-10s %-9s plan=%-4s credits=%d/%d\n",
			o.ID, o.Email, o.Role, o.Status, plan, o.CreditsRemaining, o.TotalCredits)
	}
}

func runPlans(ctx context.Context, cfg config.PortalConfig) {
	store := openDirectory(cfg)
	defer store.Close()
	plans, err := store.ListPlans(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	for _, p := range plans {
		fmt.Printf("%-5d %-20s credits=%-6d fee=%-8.2f renewal=%-5v topup=%v\n",
			p.ID, p.Name, p.DefaultCredits, p.MonthlyFee, p.RenewalRequired, p.TopupAllowed)
	}
}

func runCapabilities(ctx context.Context, cfg config.PortalConfig) {
	store := openDirectory(cfg)
	defer store.Close()
	caps, err := store.ListCapabilities(ctx)
	if err != nil {
		log.Fatalf("list capabilities: %v", err)
	}
	for _, c := range caps {
		fmt.Printf("%-5d %-24s %-10s %-10s adapter=%-10s key=%-8s cost=%d\n",
			c.ID, c.Key, c.Category, c.Tier, c.Adapter, c.KeyStatus, c.DefaultCost)
	}
}

func runSeed(ctx context.Context, cfg config.PortalConfig, args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	path := fs.String("file", cfg.CapabilitiesFile, "capabilities YAML file")
	_ = fs.Parse(args)

	if strings.TrimSpace(*path) == "" {
		log.Fatal("-file required (or capabilities_file in config)")
	}
	f, err := seed.Load(*path)
	if err != nil {
		log.Fatalf("load seed: %v", err)
	}
	store := openDirectory(cfg)
	defer store.Close()
	if err := seed.Apply(ctx, store, f, log.Default()); err != nil {
		log.Fatalf("apply seed: %v", err)
	}
	fmt.Println("seed applied")
}
