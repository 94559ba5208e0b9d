package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appassortment "github.com/wooms/storesync/internal/application/assortment"
	apporder "github.com/wooms/storesync/internal/application/order"
	apppartner "github.com/wooms/storesync/internal/application/partner"
	domsync "github.com/wooms/storesync/internal/domain/sync"
	"github.com/wooms/storesync/internal/infrastructure/config"
	"github.com/wooms/storesync/internal/infrastructure/erp"
	"github.com/wooms/storesync/internal/infrastructure/logger"
	"github.com/wooms/storesync/internal/infrastructure/phone"
	"github.com/wooms/storesync/internal/infrastructure/state"
	"github.com/wooms/storesync/internal/infrastructure/storefront"
)

func main() {
	// Parse flags
	var (
		configPath string
		logLevel   string
		dryRun     bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: ./storesync.yaml)")
	flag.StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flag.BoolVar(&dryRun, "dry-run", false, "Force storefront read-only mode for this run")
	flag.Parse()

	// Get command and arguments
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	// Every run gets its own id so interleaved cron logs stay attributable.
	log = log.With(zap.String("run_id", uuid.NewString()))

	if dryRun {
		cfg.Storefront.ReadOnly = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &application{cfg: cfg, log: log}

	switch command {
	case "sync-products":
		app.runReconciliation(ctx, true, true)

	case "create-missing":
		app.runReconciliation(ctx, true, false)

	case "check-links":
		report := domsync.NewReport()
		if err := app.reconciler().CheckLinks(ctx, report); err != nil {
			log.Fatal("Link check failed", zap.Error(err))
		}
		printReport(report)

	case "sync-orders":
		// Order creation writes to the system of record unconditionally,
		// so there is no safe dry-run for this command.
		if dryRun {
			log.Fatal("sync-orders does not support -dry-run")
		}
		app.runOrderIngestion(ctx)

	case "fix-phones":
		if err := app.matcher(app.escalator(ctx)).RenormalizePhones(ctx); err != nil {
			log.Fatal("Phone renormalization failed", zap.Error(err))
		}
		log.Info("Phone renormalization finished")

	case "blacklist":
		app.runBlacklist(args[1:])

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

// application holds lazily constructed clients and services shared by the
// commands.
type application struct {
	cfg *config.Config
	log *zap.Logger

	erpClient   *erp.Client
	storeClient *storefront.Client
}

func (a *application) erp() *erp.Client {
	if a.erpClient == nil {
		a.erpClient = erp.NewClient(erp.Config{
			BaseURL:           a.cfg.ERP.BaseURL,
			Login:             a.cfg.ERP.Login,
			Password:          a.cfg.ERP.Password,
			Timeout:           a.cfg.ERP.Timeout,
			RequestsPerSecond: a.cfg.ERP.RequestsPerSecond,
		}, a.log)
	}
	return a.erpClient
}

func (a *application) store() *storefront.Client {
	if a.storeClient == nil {
		a.storeClient = storefront.NewClient(storefront.Config{
			BaseURL:        a.cfg.Storefront.BaseURL,
			ConsumerKey:    a.cfg.Storefront.ConsumerKey,
			ConsumerSecret: a.cfg.Storefront.ConsumerSecret,
			Timeout:        a.cfg.Storefront.Timeout,
			PerPage:        a.cfg.Storefront.PerPage,
			ReadOnly:       a.cfg.Storefront.ReadOnly,
		}, a.log)
	}
	return a.storeClient
}

func (a *application) blacklist() *state.Store {
	saves, err := state.Open(a.cfg.Sync.SaveFile)
	if err != nil {
		a.log.Fatal("Failed to open save file",
			zap.String("path", a.cfg.Sync.SaveFile),
			zap.Error(err))
	}
	return saves
}

func (a *application) reconciler() *appassortment.Reconciler {
	client := a.erp()
	return appassortment.NewReconciler(client, client, a.store(),
		a.blacklist(), a.cfg.Sync.CustomerGroupTag, a.log)
}

// escalator builds the deduplicated follow-up task writer. It resolves the
// configured assignee against the ERP so a bad id fails the run up front.
func (a *application) escalator(ctx context.Context) *apporder.UniqueTasks {
	if a.cfg.Orders.TaskAssigneeID == "" {
		a.log.Fatal("orders.task_assignee_id is required for this command")
	}
	assignee, err := a.erp().GetEmployee(ctx, a.cfg.Orders.TaskAssigneeID)
	if err != nil {
		a.log.Fatal("Failed to resolve task assignee",
			zap.String("id", a.cfg.Orders.TaskAssigneeID),
			zap.Error(err))
	}
	return apporder.NewUniqueTasks(erp.NewTasks(a.erp()), assignee.Ref, a.log)
}

func (a *application) matcher(escalator apppartner.Escalator) *apppartner.IdentityMatcher {
	return apppartner.NewIdentityMatcher(
		erp.NewCounterparties(a.erp()),
		phone.NewNormalizer(a.cfg.Sync.PhoneRegion),
		a.cfg.Sync.CustomerGroupTag,
		escalator,
		a.log,
	)
}

func (a *application) runReconciliation(ctx context.Context, create, update bool) {
	reconciler := a.reconciler()
	report := domsync.NewReport()

	if create {
		if err := reconciler.CreateMissing(ctx, report); err != nil {
			a.log.Fatal("Creating missing counterparts failed", zap.Error(err))
		}
	}
	if update {
		if err := reconciler.SyncExisting(ctx, report); err != nil {
			a.log.Fatal("Syncing existing counterparts failed", zap.Error(err))
		}
	}
	printReport(report)
}

func (a *application) runOrderIngestion(ctx context.Context) {
	escalator := a.escalator(ctx)
	matcher := a.matcher(escalator)
	client := a.erp()

	ingester := apporder.NewIngester(
		a.store(),
		a.store(),
		erp.NewOrders(client),
		client,
		client,
		matcher,
		escalator,
		apporder.Config{
			StoreName:        a.cfg.Orders.StoreName,
			PaymentStates:    a.cfg.Orders.PaymentStates,
			PickupProjects:   a.cfg.Orders.PickupProjects,
			ShippingServices: a.cfg.Orders.ShippingServices,
		},
		a.log,
	)

	report := domsync.NewReport()
	needsAssortmentSync, err := ingester.IngestPending(ctx, report)
	if err != nil {
		a.log.Fatal("Order ingestion failed", zap.Error(err))
	}
	if needsAssortmentSync {
		a.log.Warn("Some orders reference storefront products without counterparts, run sync-products and retry")
	}
	printReport(report)
}

func (a *application) runBlacklist(args []string) {
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	saves := a.blacklist()

	switch args[0] {
	case "add-item":
		if len(args) < 2 {
			a.log.Fatal("Item reference required. Usage: storesync blacklist add-item <ref>")
		}
		saves.AddItem(args[1])
		if err := saves.Save(); err != nil {
			a.log.Fatal("Failed to write save file", zap.Error(err))
		}
		a.log.Info("Item blacklisted", zap.String("ref", args[1]))

	case "add-category":
		if len(args) < 2 {
			a.log.Fatal("Category reference required. Usage: storesync blacklist add-category <ref>")
		}
		saves.AddCategory(args[1])
		if err := saves.Save(); err != nil {
			a.log.Fatal("Failed to write save file", zap.Error(err))
		}
		a.log.Info("Category blacklisted", zap.String("ref", args[1]))

	case "list":
		for _, ref := range saves.Items() {
			fmt.Println("item:", ref)
		}
		for _, ref := range saves.Categories() {
			fmt.Println("category:", ref)
		}

	default:
		a.log.Error("Unknown blacklist command", zap.String("command", args[0]))
		printUsage()
		os.Exit(1)
	}
}

// printReport writes the run summary to stdout, keeping it separate from the
// log stream on stderr.
func printReport(report *domsync.Report) {
	if summary := report.String(); summary != "" {
		fmt.Print(summary)
	}
}

func printUsage() {
	fmt.Println(`Storefront Synchronization Tool

Usage:
  storesync [flags] <command> [arguments]

Commands:
  sync-products              Create missing storefront counterparts and push changed names and prices
  create-missing             Create missing storefront counterparts only
  sync-orders                Ingest pending storefront orders into the ERP
  check-links                Diagnose link-invariant violations without writing anything
  fix-phones                 Renormalize every counterparty phone to canonical form
  blacklist add-item <ref>   Exclude an ERP item from storefront creation
  blacklist add-category <ref>
                             Exclude an ERP category from storefront creation
  blacklist list             Show the blacklist

Flags:
  -config string             Path to config file (default: ./storesync.yaml)
  -log-level string          Log level override: debug, info, warn, error
  -dry-run                   Force storefront read-only mode (not valid for sync-orders)

Environment Variables:
  STORESYNC_ERP_LOGIN, STORESYNC_ERP_PASSWORD,
  STORESYNC_STOREFRONT_CONSUMER_KEY, STORESYNC_STOREFRONT_CONSUMER_SECRET

Examples:
  # Full catalog reconciliation without touching the storefront
  storesync -dry-run sync-products

  # Ingest pending orders
  storesync sync-orders

  # Exclude one item from creation
  storesync blacklist add-item https://erp.example.com/api/entity/product/123`)
}
