package assortment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wooms/storesync/internal/domain/catalog"
	"github.com/wooms/storesync/internal/domain/sync"
)

// Blacklist answers whether an ERP item or category is excluded from
// storefront creation. Backed by the local save file.
type Blacklist interface {
	ContainsItem(ref string) bool
	ContainsCategory(ref string) bool
}

// ---------------------------------------------------------------------------
// Reconciler
// ---------------------------------------------------------------------------

// Reconciler keeps the storefront catalog consistent with the ERP
// assortment: it creates missing counterparts, pushes changed names and
// prices, and diagnoses link-invariant violations. All operations follow the
// same failure policy: a per-item error is logged with the item identity,
// appended to the report, and the loop continues. Only setup failures abort.
type Reconciler struct {
	erp       catalog.Reader
	links     catalog.LinkWriter
	store     sync.Catalog
	blacklist Blacklist
	groupTag  string
	log       *zap.Logger
}

// NewReconciler creates an assortment reconciler. The group tag selects the
// customer group whose discounts price newly created and synced items.
func NewReconciler(
	erp catalog.Reader,
	links catalog.LinkWriter,
	store sync.Catalog,
	blacklist Blacklist,
	groupTag string,
	log *zap.Logger,
) *Reconciler {
	return &Reconciler{
		erp:       erp,
		links:     links,
		store:     store,
		blacklist: blacklist,
		groupTag:  groupTag,
		log:       log,
	}
}

// snapshot is the per-run view of both catalogs, assembled once so each
// operation works off a single consistent read.
type snapshot struct {
	// items holds the ERP products, services and bundles
	items []*catalog.Item
	// variants holds the ERP variants with parents attached
	variants []*catalog.Item
	// byRef indexes every ERP item and variant by its reference
	byRef map[string]*catalog.Item
	// storefront holds every storefront product and variation, flattened
	storefront []sync.StorefrontProduct
	// links is derived from the storefront entities' metadata
	links *sync.LinkSet
}

// load scans both catalogs. The link set is rebuilt from storefront metadata
// on every run, so a failed ERP write-back from a previous run heals here
// instead of duplicating products.
func (r *Reconciler) load(ctx context.Context) (*snapshot, error) {
	items, err := r.erp.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assortment: %w", err)
	}
	variants, err := r.erp.ListVariants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}

	byRef := make(map[string]*catalog.Item, len(items)+len(variants))
	for _, item := range items {
		byRef[item.Ref] = item
	}
	for _, variant := range variants {
		byRef[variant.Ref] = variant
	}

	products, err := r.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list storefront products: %w", err)
	}

	links := sync.NewLinkSet()
	storefront := make([]sync.StorefrontProduct, 0, len(products))
	for _, product := range products {
		storefront = append(storefront, product)
		if product.ErpRef != "" {
			links.Add(product.ErpRef, product.ID)
		}
		if product.Type != sync.ProductTypeVariable {
			continue
		}
		variations, err := r.store.ListVariations(ctx, product.ID)
		if err != nil {
			return nil, fmt.Errorf("list variations of %d: %w", product.ID, err)
		}
		for _, variation := range variations {
			storefront = append(storefront, variation)
			if variation.ErpRef != "" {
				links.Add(variation.ErpRef, variation.ID)
			}
		}
	}

	r.log.Debug("catalogs scanned",
		zap.Int("erp_items", len(items)),
		zap.Int("erp_variants", len(variants)),
		zap.Int("storefront_entities", len(storefront)),
		zap.Int("links", links.Len()))

	return &snapshot{
		items:      items,
		variants:   variants,
		byRef:      byRef,
		storefront: storefront,
		links:      links,
	}, nil
}

// newResolver loads the active discount rules and the account's default
// price type. Part of the setup phase, so failures here are fatal.
func (r *Reconciler) newResolver(ctx context.Context) (*catalog.Resolver, error) {
	defaultType, err := r.erp.DefaultPriceType(ctx)
	if err != nil {
		return nil, fmt.Errorf("default price type: %w", err)
	}
	rules, err := r.erp.ListActiveDiscounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	return catalog.NewResolver(defaultType, rules), nil
}

// ---------------------------------------------------------------------------
// CheckLinks
// ---------------------------------------------------------------------------

// CheckLinks is a read-only diagnostic over the cross-system links. It
// reports duplicate links in both directions, storefront entities with no
// ERP reference, and references pointing at ERP entities that no longer
// exist. Nothing is modified.
func (r *Reconciler) CheckLinks(ctx context.Context, report *sync.Report) error {
	snap, err := r.load(ctx)
	if err != nil {
		return err
	}

	for _, group := range snap.links.Duplicates() {
		if group.ErpRef != "" {
			report.Append(sync.GroupDuplicates,
				"ERP reference %s is consumed by storefront items %v", group.ErpRef, group.StorefrontIDs)
			continue
		}
		report.Append(sync.GroupDuplicates,
			"storefront item %d is consumed by ERP references %v", group.StorefrontID, group.ErpRefs)
	}

	// The reverse direction lives in the ERP attribute, invisible to the
	// storefront metadata scan.
	claims := sync.NewLinkSet()
	for _, item := range append(append([]*catalog.Item(nil), snap.items...), snap.variants...) {
		if item.StorefrontID != 0 {
			claims.Add(item.Ref, item.StorefrontID)
		}
	}
	for _, group := range claims.Duplicates() {
		if group.StorefrontID != 0 {
			report.Append(sync.GroupDuplicates,
				"storefront item %d is claimed by ERP references %v", group.StorefrontID, group.ErpRefs)
		}
	}

	for _, sp := range snap.storefront {
		switch {
		case sp.ErpRef == "":
			report.Append(sync.GroupUnsynchronized, "%q (id %d)", sp.Name, sp.ID)
		default:
			if _, ok := snap.byRef[sp.ErpRef]; !ok {
				report.Append(sync.GroupRefNotFound,
					"%q (id %d) references missing ERP entity %s", sp.Name, sp.ID, sp.ErpRef)
			}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// CreateMissing
// ---------------------------------------------------------------------------

// CreateMissing creates storefront counterparts for importable ERP items
// that have none yet. Counterparts are created as drafts so an operator
// reviews them before publication. Variants are created only under an
// already-linked parent product.
func (r *Reconciler) CreateMissing(ctx context.Context, report *sync.Report) error {
	resolver, err := r.newResolver(ctx)
	if err != nil {
		return err
	}
	snap, err := r.load(ctx)
	if err != nil {
		return err
	}

	for _, item := range snap.items {
		if r.skipCreation(item, snap.links) {
			continue
		}

		productType := sync.ProductTypeSimple
		if item.HasVariants {
			productType = sync.ProductTypeVariable
		}
		np, ok := r.newProduct(item, productType, resolver, report)
		if !ok {
			continue
		}

		created, err := r.store.CreateProduct(ctx, np)
		if err != nil {
			r.fail(report, item, "create product", err)
			continue
		}
		report.Append(sync.GroupCreatedProducts, "%q", item.Name)
		r.writeBack(ctx, report, item, created.ID)
		if created.ID != 0 {
			snap.links.Add(item.Ref, created.ID)
		}
	}

	for _, variant := range snap.variants {
		if r.skipCreation(variant, snap.links) {
			continue
		}
		if variant.Parent == nil {
			r.fail(report, variant, "create variant", catalog.ErrVariantHasNoParent)
			continue
		}
		parentID, ok := snap.links.Resolve(variant.Parent.Ref)
		if !ok {
			report.Append(sync.GroupErrors,
				"variant %q skipped: parent %q is not linked", variant.Name, variant.Parent.Name)
			continue
		}

		np, ok := r.newProduct(variant, "", resolver, report)
		if !ok {
			continue
		}
		created, err := r.store.CreateVariation(ctx, parentID, np)
		if err != nil {
			r.fail(report, variant, "create variant", err)
			continue
		}
		report.Append(sync.GroupCreatedVariants, "%q", variant.Name)
		r.writeBack(ctx, report, variant, created.ID)
	}
	return nil
}

// skipCreation applies the eligibility gates: import flag, existing link,
// and the two blacklists.
func (r *Reconciler) skipCreation(item *catalog.Item, links *sync.LinkSet) bool {
	if !item.Importable {
		return true
	}
	if links.Contains(item.Ref) {
		return true
	}
	if r.blacklist.ContainsItem(item.Ref) {
		return true
	}
	if category, ok := item.Category(); ok && r.blacklist.ContainsCategory(category) {
		return true
	}
	return false
}

func (r *Reconciler) newProduct(
	item *catalog.Item,
	productType string,
	resolver *catalog.Resolver,
	report *sync.Report,
) (sync.NewProduct, bool) {
	quote, err := resolver.Resolve(item, r.groupTag)
	if err != nil {
		r.fail(report, item, "resolve price", err)
		return sync.NewProduct{}, false
	}
	np := sync.NewProduct{
		Name:         item.Name,
		Status:       sync.StatusDraft,
		Type:         productType,
		SKU:          item.Article,
		Virtual:      item.Kind == catalog.KindService,
		ErpRef:       item.Ref,
		RegularPrice: quote.Regular,
	}
	if sale, ok := quote.Sale(); ok {
		np.SalePrice = &sale
	}
	return np, true
}

// writeBack stores the storefront id on the ERP item. A zero id means the
// storefront ran read-only and created nothing, so there is nothing to link.
func (r *Reconciler) writeBack(ctx context.Context, report *sync.Report, item *catalog.Item, storefrontID int64) {
	if storefrontID == 0 {
		return
	}
	if err := r.links.SetStorefrontID(ctx, item, storefrontID); err != nil {
		r.fail(report, item, "write link attribute", err)
	}
}

// ---------------------------------------------------------------------------
// SyncExisting
// ---------------------------------------------------------------------------

// SyncExisting pushes changed names and prices to already-linked storefront
// entities. Only fields that actually differ go into the update payload, and
// an empty payload performs no remote write. A product whose variant
// structure changed on the ERP side cannot be converted in place and is
// reported instead.
func (r *Reconciler) SyncExisting(ctx context.Context, report *sync.Report) error {
	resolver, err := r.newResolver(ctx)
	if err != nil {
		return err
	}
	snap, err := r.load(ctx)
	if err != nil {
		return err
	}

	for _, sp := range snap.storefront {
		if sp.ErpRef == "" {
			continue
		}
		item, ok := snap.byRef[sp.ErpRef]
		if !ok {
			// Reported by CheckLinks; nothing to sync against.
			continue
		}
		if _, resolved := snap.links.Resolve(sp.ErpRef); !resolved {
			// Duplicate link, reported by CheckLinks. Syncing either side
			// would guess which one is authoritative.
			continue
		}

		if sp.Type != "" {
			wantType := sync.ProductTypeSimple
			if item.HasVariants {
				wantType = sync.ProductTypeVariable
			}
			if sp.Type != wantType {
				report.Append(sync.GroupErrors,
					"%q (id %d): conversion %s to %s is not implemented", sp.Name, sp.ID, sp.Type, wantType)
				continue
			}
		}

		quote, err := resolver.Resolve(item, r.groupTag)
		if err != nil {
			r.fail(report, item, "resolve price", err)
			continue
		}

		update := diff(item, quote, sp)
		if update.IsEmpty() {
			continue
		}
		if err := r.store.UpdateProduct(ctx, sp.ID, update); err != nil {
			r.fail(report, item, "update product", err)
			continue
		}
		r.log.Info("storefront item updated",
			zap.String("item", item.Name), zap.Int64("storefront_id", sp.ID))
		report.Append(sync.GroupUpdated, "%q", item.Name)
	}
	return nil
}

// diff computes the minimal update payload for one linked pair
func diff(item *catalog.Item, quote catalog.Quote, sp sync.StorefrontProduct) sync.ProductUpdate {
	var update sync.ProductUpdate

	if sp.Name != item.Name {
		name := item.Name
		update.Name = &name
	}
	if sp.RegularPrice == nil || !sp.RegularPrice.Equals(quote.Regular) {
		regular := quote.Regular
		update.RegularPrice = &regular
	}
	if sale, ok := quote.Sale(); ok {
		if sp.SalePrice == nil || !sp.SalePrice.Equals(sale) {
			update.SalePrice = &sale
		}
	} else if sp.SalePrice != nil {
		update.ClearSalePrice = true
	}
	return update
}

func (r *Reconciler) fail(report *sync.Report, item *catalog.Item, action string, err error) {
	r.log.Error("item skipped",
		zap.String("item", item.Name),
		zap.String("ref", item.Ref),
		zap.String("action", action),
		zap.Error(err))
	report.Append(sync.GroupErrors, "%s %q: %v", action, item.Name, err)
}
