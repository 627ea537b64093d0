package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/geo-tg/ljb-asset-workorder-updates/internal/feature"
)

// mirrorToList rebuilds the map list layer: every existing row is deleted and
// the current work orders are copied in, all stacked on one fixed point so
// the list widget renders them together.
func (r *Runner) mirrorToList(ctx context.Context) error {
	svc := r.cfg.Service

	orders, err := r.store.Query(ctx, svc.WorkOrderLayer, "1=1")
	if err != nil {
		return fmt.Errorf("failed to query work orders for list mirror: %w", err)
	}
	existing, err := r.store.Query(ctx, svc.ListLayer, "1=1")
	if err != nil {
		return fmt.Errorf("failed to query list layer: %w", err)
	}

	if len(existing) > 0 {
		ids := make([]int64, 0, len(existing))
		for _, f := range existing {
			ids = append(ids, f.Int64("OBJECTID"))
		}
		if err := r.store.Delete(ctx, svc.ListLayer, ids); err != nil {
			return fmt.Errorf("failed to clear list layer: %w", err)
		}
	}

	if len(orders) == 0 {
		r.logger.Info("list layer mirrored", zap.Int("work_orders", 0))
		return nil
	}

	point, err := json.Marshal(map[string]any{
		"x":                svc.ListX,
		"y":                svc.ListY,
		"spatialReference": map[string]any{"wkid": 102100},
	})
	if err != nil {
		return fmt.Errorf("failed to encode list point: %w", err)
	}

	copies := make([]feature.Feature, 0, len(orders))
	for _, f := range orders {
		attrs := make(map[string]any, len(f.Attributes))
		for k, v := range f.Attributes {
			if k == "OBJECTID" || k == "GlobalID" {
				continue
			}
			attrs[k] = v
		}
		copies = append(copies, feature.Feature{Attributes: attrs, Geometry: point})
	}

	if _, err := r.store.Add(ctx, svc.ListLayer, copies); err != nil {
		return fmt.Errorf("failed to append work orders to list layer: %w", err)
	}
	r.logger.Info("list layer mirrored",
		zap.Int("work_orders", len(copies)),
		zap.Int("removed", len(existing)),
	)
	return nil
}
