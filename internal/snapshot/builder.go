// Package snapshot converts raw feature records into the typed working set
// the reconciliation engine runs over: assets keyed and ordered as queried,
// each correlated with at most one work order.
package snapshot

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/geo-tg/ljb-asset-workorder-updates/internal/config"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/domain"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/feature"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/reconcile"
)

// Builder maps loosely-typed attribute dictionaries onto domain values
// using the explicit field tables from configuration, failing closed on
// records that are missing required identifiers.
type Builder struct {
	variant  reconcile.Variant
	woFields config.WorkOrderFields
	logger   *zap.Logger
}

// NewBuilder creates a Builder for one run.
func NewBuilder(variant reconcile.Variant, woFields config.WorkOrderFields, logger *zap.Logger) *Builder {
	return &Builder{variant: variant, woFields: woFields, logger: logger}
}

// Assets converts one layer's features into assets of the given category.
// Features without a scheduled next inspection never enter the working set;
// features missing their asset id are skipped with a warning and produce no
// report row.
func (b *Builder) Assets(feats []feature.Feature, cat domain.Category, fields config.AssetFields) []domain.Asset {
	assets := make([]domain.Asset, 0, len(feats))
	for _, f := range feats {
		next := f.Date(fields.NextInspection)
		if next == nil {
			continue
		}

		assetID := f.String(fields.AssetID)
		if assetID == "" {
			b.logger.Warn("asset is missing its asset id, skipping",
				zap.String("category", string(cat)),
				zap.Int64("object_id", f.Int64("OBJECTID")),
				zap.String("global_id", f.String("GlobalID")),
			)
			continue
		}

		assets = append(assets, domain.Asset{
			AssetID:        assetID,
			Category:       cat,
			Area:           f.String(fields.Area),
			Building:       f.String(fields.Building),
			Description:    f.String(fields.Description),
			Notes:          f.String(fields.Notes),
			Clock:          f.String(fields.Clock),
			Kind:           f.String(fields.EquipType),
			Accessible:     f.String(fields.Accessible),
			Interval:       parseInterval(f.Attributes[fields.Interval]),
			NextInspection: next,
			LastInspection: f.Date(fields.LastInspection),
			ObjectID:       f.Int64("OBJECTID"),
			GlobalID:       f.String("GlobalID"),
			Geometry:       f.Geometry,
		})
	}
	return assets
}

// parseInterval accepts both encodings: the unified service stores a named
// frequency, the legacy service a numeric day count (which the JSON decoder
// may deliver as a number or a string).
func parseInterval(v any) domain.Interval {
	switch t := v.(type) {
	case string:
		if days, err := strconv.Atoi(t); err == nil {
			return domain.Interval{Days: days}
		}
		return domain.Interval{Name: t}
	case float64:
		return domain.Interval{Days: int(t)}
	default:
		return domain.Interval{}
	}
}

// WorkOrders converts work-order features (point layer or history table).
func (b *Builder) WorkOrders(feats []feature.Feature) []domain.WorkOrder {
	f := b.woFields
	orders := make([]domain.WorkOrder, 0, len(feats))
	for _, raw := range feats {
		completed := raw.Date(f.Completed)
		if completed == nil {
			// The unified table stamps the inspection time on LastInspect
			// instead of a dedicated completion field.
			completed = raw.Date(f.LastInspection)
		}
		orders = append(orders, domain.WorkOrder{
			ObjectID:  raw.Int64("OBJECTID"),
			GlobalID:  raw.String("GlobalID"),
			AssetID:   raw.String(f.AssetID),
			Type:      raw.String(f.Type),
			Status:    domain.Status(raw.String(f.Status)),
			Assignee:  raw.String(f.Assignee),
			Clock:     raw.String(f.Clock),
			DueDate:   raw.Date(f.DueDate),
			Completed: completed,
			Created:   raw.Date(f.Created),
			Geometry:  raw.Geometry,
		})
	}
	return orders
}

// Build correlates each asset with its work order and produces the engine
// inputs in asset query order.
//
// Legacy correlation matches on asset id plus due date, which keeps older
// completed orders from shadowing the current cycle. Unified correlation
// follows the RELAssetID foreign key to the permanent point and picks the
// most recent history row.
func (b *Builder) Build(assets []domain.Asset, orders, history []domain.WorkOrder) []reconcile.Input {
	inputs := make([]reconcile.Input, 0, len(assets))

	if b.variant == reconcile.VariantLegacy {
		correlated := correlateByDueDate(assets, orders)
		for _, a := range assets {
			inputs = append(inputs, reconcile.Input{Asset: a, Order: correlated[legacyKey(a)]})
		}
		return inputs
	}

	points := make(map[string]*domain.WorkOrder, len(orders))
	for i := range orders {
		points[orders[i].AssetID] = &orders[i]
	}
	rowsByAsset := make(map[string][]domain.WorkOrder)
	for _, row := range history {
		rowsByAsset[row.AssetID] = append(rowsByAsset[row.AssetID], row)
	}

	for _, a := range assets {
		rows := rowsByAsset[a.AssetID]
		inputs = append(inputs, reconcile.Input{
			Asset:      a,
			Order:      points[a.AssetID],
			Completion: MostRecent(rows),
			HasHistory: len(rows) > 0,
		})
	}
	return inputs
}

func legacyKey(a domain.Asset) string {
	return a.AssetID + "|" + strconv.FormatInt(*a.NextInspection, 10)
}

func correlateByDueDate(assets []domain.Asset, orders []domain.WorkOrder) map[string]*domain.WorkOrder {
	wanted := make(map[string]bool, len(assets))
	for _, a := range assets {
		wanted[legacyKey(a)] = true
	}
	out := make(map[string]*domain.WorkOrder)
	for i := range orders {
		o := &orders[i]
		if o.DueDate == nil {
			continue
		}
		key := o.AssetID + "|" + strconv.FormatInt(*o.DueDate, 10)
		if wanted[key] {
			out[key] = o
		}
	}
	return out
}

// MostRecent picks the history row treated as the asset's latest, scanning
// in input order: the highest non-null completion timestamp wins, but a row
// with a null timestamp immediately becomes the candidate. The null rule
// can prefer an in-flight row over a finished one with a real timestamp;
// it matches the production behavior and is kept until the domain owners
// rule on it.
func MostRecent(rows []domain.WorkOrder) *domain.WorkOrder {
	var chosen *domain.WorkOrder
	var latest int64
	for i := range rows {
		row := &rows[i]
		switch {
		case row.Completed != nil && *row.Completed > latest:
			latest = *row.Completed
			chosen = row
		case row.Completed == nil:
			chosen = row
		}
	}
	return chosen
}
