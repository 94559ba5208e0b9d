package order

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/wooms/storesync/internal/domain/catalog"
	"github.com/wooms/storesync/internal/domain/order"
	"github.com/wooms/storesync/internal/domain/partner"
	"github.com/wooms/storesync/internal/domain/shared"
	"github.com/wooms/storesync/internal/domain/sync"
)

// Matcher resolves a billing contact to exactly one counterparty
type Matcher interface {
	FindOrCreate(ctx context.Context, contact partner.Contact) (*partner.Counterparty, error)
}

// Escalator records a warning as a deduplicated operator-facing follow-up
type Escalator interface {
	EscalateUnique(ctx context.Context, description string) error
}

// Config carries the operator-authored mappings the ingester resolves
// against ERP master data at setup time.
type Config struct {
	// StoreName is the fulfilling warehouse, matched by display name
	StoreName string
	// PaymentStates maps storefront payment-method codes to ERP order
	// state names. Every referenced state must exist.
	PaymentStates map[string]string
	// PickupProjects maps pickup-store hints to ERP project names
	PickupProjects map[string]string
	// ShippingServices maps storefront shipping method titles to ERP
	// service item ids. Unmapped titles are skipped silently.
	ShippingServices map[string]string
}

// ---------------------------------------------------------------------------
// Ingester
// ---------------------------------------------------------------------------

// Ingester turns pending storefront orders into ERP customer orders.
// Ingestion is idempotent through the external-code tag: an order whose
// storefront id is already claimed by an ERP order is never created twice.
// Per-order failures leave the order pending for the next run; nothing is
// created partially.
type Ingester struct {
	source    order.Source
	completer order.Completer
	erpOrders order.ErpOrders
	master    order.MasterData
	locator   catalog.Locator
	matcher   Matcher
	escalator Escalator
	cfg       Config
	log       *zap.Logger
}

// NewIngester creates an order ingester
func NewIngester(
	source order.Source,
	completer order.Completer,
	erpOrders order.ErpOrders,
	master order.MasterData,
	locator catalog.Locator,
	matcher Matcher,
	escalator Escalator,
	cfg Config,
	log *zap.Logger,
) *Ingester {
	return &Ingester{
		source:    source,
		completer: completer,
		erpOrders: erpOrders,
		master:    master,
		locator:   locator,
		matcher:   matcher,
		escalator: escalator,
		cfg:       cfg,
		log:       log,
	}
}

// resolved holds the master-data references for one run
type resolved struct {
	organizationRef string
	storeRef        string
	stateRefs       map[string]string
	projectRefs     map[string]string
	serviceRefs     map[string]string
	lastNumber      int
}

// setup resolves every configured mapping against ERP master data. A broken
// mapping makes the whole run meaningless, so any failure here is fatal.
func (i *Ingester) setup(ctx context.Context) (*resolved, error) {
	organizations, err := i.master.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	if len(organizations) == 0 {
		return nil, shared.NewConfigurationError("organization", "the ERP account has no organizations")
	}

	stores, err := i.master.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	storeRef := ""
	for _, store := range stores {
		if store.Name == i.cfg.StoreName {
			storeRef = store.Ref
			break
		}
	}
	if storeRef == "" {
		return nil, shared.NewConfigurationError("store", "no warehouse named %q", i.cfg.StoreName)
	}

	states, err := i.master.ListOrderStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list order states: %w", err)
	}
	stateByName := make(map[string]string, len(states))
	for _, state := range states {
		stateByName[state.Name] = state.Ref
	}
	stateRefs := make(map[string]string, len(i.cfg.PaymentStates))
	for method, stateName := range i.cfg.PaymentStates {
		ref, ok := stateByName[stateName]
		if !ok {
			return nil, shared.NewConfigurationError("payment states",
				"order state %q for payment method %q does not exist", stateName, method)
		}
		stateRefs[method] = ref
	}

	projects, err := i.master.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projectByName := make(map[string]string, len(projects))
	for _, project := range projects {
		projectByName[project.Name] = project.Ref
	}
	projectRefs := make(map[string]string, len(i.cfg.PickupProjects))
	for pickup, projectName := range i.cfg.PickupProjects {
		ref, ok := projectByName[projectName]
		if !ok {
			return nil, shared.NewConfigurationError("pickup projects",
				"project %q for pickup store %q does not exist", projectName, pickup)
		}
		projectRefs[pickup] = ref
	}

	serviceRefs := make(map[string]string, len(i.cfg.ShippingServices))
	for title, serviceID := range i.cfg.ShippingServices {
		service, err := i.master.GetService(ctx, serviceID)
		if err != nil {
			return nil, fmt.Errorf("resolve shipping service %q: %w", title, err)
		}
		serviceRefs[title] = service.Ref
	}

	lastNumber, err := i.erpOrders.LastNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("last order number: %w", err)
	}

	return &resolved{
		organizationRef: organizations[0].Ref,
		storeRef:        storeRef,
		stateRefs:       stateRefs,
		projectRefs:     projectRefs,
		serviceRefs:     serviceRefs,
		lastNumber:      lastNumber,
	}, nil
}

// IngestPending processes every pending storefront order. The boolean result
// reports whether a line item failed to resolve because its product has no
// ERP counterpart yet, signalling the caller to run an assortment sync.
func (i *Ingester) IngestPending(ctx context.Context, report *sync.Report) (bool, error) {
	res, err := i.setup(ctx)
	if err != nil {
		return false, err
	}

	pending, err := i.source.ListPending(ctx)
	if err != nil {
		return false, fmt.Errorf("list pending orders: %w", err)
	}
	i.log.Info("pending orders listed", zap.Int("count", len(pending)))

	needsAssortmentSync := false
	for _, po := range pending {
		missing, err := i.ingest(ctx, res, po, report)
		if missing {
			needsAssortmentSync = true
		}
		if err != nil {
			i.log.Error("order skipped", zap.Int64("order", po.ID), zap.Error(err))
			report.Append(sync.GroupErrors, "order %d: %v", po.ID, err)
		}
	}
	return needsAssortmentSync, nil
}

// ingest processes one pending order. The boolean result reports an
// unresolvable line item caused by a missing assortment link.
func (i *Ingester) ingest(ctx context.Context, res *resolved, po order.PendingOrder, report *sync.Report) (bool, error) {
	externalCode := strconv.FormatInt(po.ID, 10)

	exists, err := i.erpOrders.ExistsByExternalCode(ctx, externalCode)
	if err != nil {
		return false, fmt.Errorf("idempotence check: %w", err)
	}
	if exists {
		// Created on a previous run whose completion write failed. Heal by
		// completing now instead of creating a duplicate.
		i.log.Info("order already ingested", zap.Int64("order", po.ID))
		i.complete(ctx, po.ID)
		return false, nil
	}

	counterparty, err := i.matcher.FindOrCreate(ctx, po.Billing)
	if err != nil {
		return false, fmt.Errorf("resolve counterparty: %w", err)
	}

	stateRef, ok := res.stateRefs[po.PaymentMethod]
	if !ok {
		return false, shared.NewConfigurationError("payment states",
			"payment method %q is not mapped to an order state", po.PaymentMethod)
	}

	positions, missing, err := i.resolvePositions(ctx, po)
	if err != nil || missing {
		return missing, err
	}

	for _, line := range po.Shipping {
		serviceRef, ok := res.serviceRefs[line.MethodTitle]
		if !ok {
			// Unmapped shipping methods carry no ERP position.
			continue
		}
		positions = append(positions, order.Position{
			AssortmentRef: serviceRef,
			Quantity:      1,
			Price:         line.Total,
		})
	}

	draft := order.Draft{
		Name:            order.FormatNumber(res.lastNumber + 1),
		ExternalCode:    externalCode,
		Description:     po.CustomerNote,
		AgentRef:        counterparty.Ref,
		StateRef:        stateRef,
		OrganizationRef: res.organizationRef,
		StoreRef:        res.storeRef,
		ProjectRef:      res.projectRefs[po.PickupStore],
		StorefrontID:    po.ID,
		Positions:       positions,
	}
	if err := draft.Validate(); err != nil {
		return false, err
	}

	created, err := i.erpOrders.Create(ctx, draft)
	if err != nil {
		return false, fmt.Errorf("create order: %w", err)
	}
	// The counter advances only on a confirmed create so a failed attempt
	// never burns a number.
	res.lastNumber++

	i.log.Info("order ingested",
		zap.Int64("order", po.ID),
		zap.String("name", created.Name),
		zap.String("counterparty", counterparty.Name))
	report.Append(sync.GroupOrders, "%s (storefront order %d)", created.Name, po.ID)

	i.complete(ctx, po.ID)
	return false, nil
}

// resolvePositions maps every line item to exactly one importable ERP
// entity. Zero matches means the assortment is out of sync; more than one is
// a data-integrity problem escalated as a task. Either way the order is
// aborted whole, no partial draft is built.
func (i *Ingester) resolvePositions(ctx context.Context, po order.PendingOrder) ([]order.Position, bool, error) {
	positions := make([]order.Position, 0, len(po.Items))
	for _, line := range po.Items {
		matches, err := i.locator.FindImportableByStorefrontID(ctx, line.ProductID)
		if err != nil {
			return nil, false, fmt.Errorf("resolve product %d: %w", line.ProductID, err)
		}
		switch len(matches) {
		case 1:
			positions = append(positions, order.Position{
				AssortmentRef: matches[0].Ref,
				Quantity:      line.Quantity,
				Price:         line.UnitPrice,
			})
		case 0:
			i.log.Warn("line item has no ERP counterpart",
				zap.Int64("order", po.ID),
				zap.Int64("product", line.ProductID),
				zap.String("name", line.Name))
			return nil, true, fmt.Errorf("product %d (%s) has no ERP counterpart", line.ProductID, line.Name)
		default:
			i.escalate(ctx, fmt.Sprintf(
				"Storefront product %d is claimed by %d ERP items", line.ProductID, len(matches)))
			return nil, false, shared.NewDataIntegrityError(
				"storefront product %d matches %d ERP items", line.ProductID, len(matches))
		}
	}
	return positions, false, nil
}

// complete marks the storefront order completed, best effort. The ERP order
// exists either way; a failure here is healed by the idempotence check on
// the next run.
func (i *Ingester) complete(ctx context.Context, orderID int64) {
	if err := i.completer.MarkCompleted(ctx, orderID); err != nil {
		i.log.Error("storefront completion failed", zap.Int64("order", orderID), zap.Error(err))
	}
}

func (i *Ingester) escalate(ctx context.Context, description string) {
	if i.escalator == nil {
		return
	}
	if err := i.escalator.EscalateUnique(ctx, description); err != nil {
		i.log.Error("task escalation failed", zap.Error(err))
	}
}
