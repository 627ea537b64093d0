package runner

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geo-tg/ljb-asset-workorder-updates/internal/feature"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/reconcile"
)

// executeWrites applies one asset's pending writes. Failures are logged and
// skipped so a single bad record cannot abort the run.
func (r *Runner) executeWrites(ctx context.Context, res reconcile.Result) {
	for _, w := range res.Writes {
		var err error
		switch op := w.(type) {
		case reconcile.AddWorkOrder:
			err = r.addWorkOrder(ctx, res.AssetID, op)
		case reconcile.UpdateWorkOrder:
			err = r.updateWorkOrder(ctx, res.AssetID, op)
		case reconcile.UpdateAssetSchedule:
			err = r.updateAssetSchedule(ctx, op)
		}
		if err != nil {
			r.logger.Error("write failed, continuing with next asset",
				zap.String("asset_id", res.AssetID),
				zap.String("outcome", string(res.Outcome)),
				zap.Error(err),
			)
		}
	}
}

// newGlobalID mints a feature-service global id for an inserted record.
func newGlobalID() string {
	return "{" + strings.ToUpper(uuid.NewString()) + "}"
}

func (r *Runner) addWorkOrder(ctx context.Context, assetID string, op reconcile.AddWorkOrder) error {
	f := r.cfg.Fields.WorkOrder
	o := op.Order

	attrs := map[string]any{
		"GlobalID": newGlobalID(),
		f.AssetID:  o.AssetID,
		f.Status:   string(o.Status),
		f.DueDate:  *o.DueDate,
	}
	if f.Type != "" && o.Type != "" {
		attrs[f.Type] = o.Type
	}
	if f.Assignee != "" && o.Assignee != "" {
		attrs[f.Assignee] = o.Assignee
	}

	// New orders carry the asset's location attributes so crews can find the
	// equipment from the order alone.
	asset, known := r.assetsByID[o.AssetID]
	if known {
		for name, value := range map[string]string{
			f.Area:        asset.Area,
			f.Building:    asset.Building,
			f.Description: asset.Description,
			f.Notes:       asset.Notes,
			f.Clock:       asset.Clock,
		} {
			if name != "" && value != "" {
				attrs[name] = value
			}
		}
	}

	results, err := r.store.Add(ctx, r.cfg.Service.WorkOrderLayer, []feature.Feature{
		{Attributes: attrs, Geometry: o.Geometry},
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		r.logger.Warn("work order add returned no edit results",
			zap.String("asset_id", assetID),
		)
		return nil
	}
	r.logger.Info("work order created",
		zap.String("asset_id", assetID),
		zap.Int64("object_id", results[0].ObjectID),
	)

	if op.CopyAttachments && known {
		binding := r.bindings[asset.Category]
		r.copyAttachments(ctx,
			binding.layer, asset.ObjectID,
			r.cfg.Service.WorkOrderLayer, results[0].ObjectID,
			assetID,
		)
	}
	return nil
}

func (r *Runner) updateWorkOrder(ctx context.Context, assetID string, op reconcile.UpdateWorkOrder) error {
	f := r.cfg.Fields.WorkOrder

	attrs := map[string]any{"OBJECTID": op.ObjectID}
	if op.Status != "" {
		attrs[f.Status] = string(op.Status)
	}
	if op.NextInspection != nil && f.NextInspection != "" {
		attrs[f.NextInspection] = *op.NextInspection
	}
	if op.LastInspection != nil && f.LastInspection != "" {
		attrs[f.LastInspection] = *op.LastInspection
	}
	if op.Clock != "" && f.Clock != "" {
		attrs[f.Clock] = op.Clock
	}
	if op.Inspector != "" && f.Assignee != "" {
		attrs[f.Assignee] = op.Inspector
	}

	if _, err := r.store.Update(ctx, r.cfg.Service.WorkOrderLayer, []feature.Feature{
		{Attributes: attrs},
	}); err != nil {
		return err
	}
	r.logger.Info("work order updated",
		zap.String("asset_id", assetID),
		zap.Int64("object_id", op.ObjectID),
		zap.String("status", string(op.Status)),
	)

	if op.CopyAttachmentsFrom != 0 && r.cfg.Service.WorkOrderTable >= 0 {
		r.copyAttachments(ctx,
			r.cfg.Service.WorkOrderTable, op.CopyAttachmentsFrom,
			r.cfg.Service.WorkOrderLayer, op.ObjectID,
			assetID,
		)
	}
	return nil
}

func (r *Runner) updateAssetSchedule(ctx context.Context, op reconcile.UpdateAssetSchedule) error {
	binding, ok := r.bindings[op.Category]
	if !ok {
		// Cannot happen for assets that came out of queryAssets.
		r.logger.Warn("no layer binding for category", zap.String("category", string(op.Category)))
		return nil
	}
	fields := binding.fields

	attrs := map[string]any{
		"OBJECTID":            op.ObjectID,
		fields.LastInspection: op.LastInspection,
		fields.NextInspection: op.NextInspection,
	}
	if op.Inspector != "" && fields.Inspector != "" {
		attrs[fields.Inspector] = op.Inspector
	}

	if _, err := r.store.Update(ctx, binding.layer, []feature.Feature{
		{Attributes: attrs},
	}); err != nil {
		return err
	}
	r.logger.Info("asset schedule rolled forward",
		zap.String("category", string(op.Category)),
		zap.Int64("object_id", op.ObjectID),
	)
	return nil
}

// copyAttachments mirrors every attachment from one feature onto another.
// Best effort: a failed copy is logged and never affects the parent write.
func (r *Runner) copyAttachments(ctx context.Context, fromLayer int, fromOID int64, toLayer int, toOID int64, assetID string) {
	atts, err := r.store.Attachments(ctx, fromLayer, fromOID)
	if err != nil {
		r.logger.Warn("failed to list attachments",
			zap.String("asset_id", assetID),
			zap.Int64("from_oid", fromOID),
			zap.Error(err),
		)
		return
	}
	for _, att := range atts {
		data, err := r.store.DownloadAttachment(ctx, fromLayer, fromOID, att)
		if err != nil {
			r.logger.Warn("failed to download attachment",
				zap.String("asset_id", assetID),
				zap.String("name", att.Name),
				zap.Error(err),
			)
			continue
		}
		if err := r.store.AddAttachment(ctx, toLayer, toOID, att.Name, data); err != nil {
			r.logger.Warn("failed to copy attachment",
				zap.String("asset_id", assetID),
				zap.String("name", att.Name),
				zap.Error(err),
			)
		}
	}
}
