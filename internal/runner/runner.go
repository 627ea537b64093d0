// Package runner drives one reconciliation run end to end: snapshot the
// remote layers, decide an outcome per asset, execute the implied writes,
// mirror the work orders to the list layer, and deliver the workbook.
package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/geo-tg/ljb-asset-workorder-updates/internal/config"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/domain"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/feature"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/notify"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/reconcile"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/report"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/snapshot"
)

// layerBinding remembers where a category's assets live so schedule updates
// can be written back with the right field names.
type layerBinding struct {
	layer  int
	fields config.AssetFields
}

// Runner executes one run. It is built once per invocation; runs are
// stateless between invocations except through the remote store.
type Runner struct {
	cfg      *config.Config
	store    feature.Store
	notifier notify.Notifier
	logger   *zap.Logger
	loc      *time.Location

	policy     reconcile.Policy
	categories []domain.Category
	bindings   map[domain.Category]layerBinding
	assetsByID map[string]domain.Asset
}

// New builds a Runner from validated configuration.
func New(cfg *config.Config, store feature.Store, notifier notify.Notifier, logger *zap.Logger) (*Runner, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	policy := reconcile.Policy{
		Variant:     reconcile.Variant(cfg.Policy.Variant),
		LeadWindows: make(map[domain.Category]int, len(cfg.Policy.LeadWindows)),
		Assignments: make(map[domain.Category]reconcile.Assignment, len(cfg.Policy.Assignments)),
	}
	for name, days := range cfg.Policy.LeadWindows {
		policy.LeadWindows[domain.Category(name)] = days
	}
	for name, a := range cfg.Policy.Assignments {
		policy.Assignments[domain.Category(name)] = reconcile.Assignment{
			Type:     a.Type,
			Assignee: a.Assignee,
		}
	}

	r := &Runner{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		logger:   logger,
		loc:      loc,
		policy:   policy,
		bindings: make(map[domain.Category]layerBinding, len(cfg.Service.AssetLayers)),
	}
	for _, al := range cfg.Service.AssetLayers {
		cat := domain.Category(al.Category)
		if _, dup := r.bindings[cat]; dup {
			return nil, fmt.Errorf("asset layer category %q configured twice", al.Category)
		}
		r.bindings[cat] = layerBinding{layer: al.Layer, fields: al.Fields}
		r.categories = append(r.categories, cat)
	}
	return r, nil
}

// Run performs the whole pipeline for one run date. Per-asset write failures
// are logged and skipped; anything else aborts with an error the caller
// reports through the failure alert.
func (r *Runner) Run(ctx context.Context, today time.Time) error {
	today = today.In(r.loc)
	r.logger.Info("run started",
		zap.String("variant", string(r.policy.Variant)),
		zap.Time("today", today),
	)

	builder := snapshot.NewBuilder(r.policy.Variant, r.cfg.Fields.WorkOrder, r.logger)

	assets, err := r.queryAssets(ctx, builder)
	if err != nil {
		return err
	}
	orders, history, err := r.queryWorkOrders(ctx, builder)
	if err != nil {
		return err
	}

	r.assetsByID = make(map[string]domain.Asset, len(assets))
	for _, a := range assets {
		r.assetsByID[a.AssetID] = a
	}

	inputs := builder.Build(assets, orders, history)
	engine := reconcile.NewEngine(r.policy, r.loc, r.logger)
	agg := report.NewAggregator(r.categories)

	for _, in := range inputs {
		res := engine.Reconcile(in, today)
		r.logger.Debug("asset reconciled",
			zap.String("asset_id", res.AssetID),
			zap.String("outcome", string(res.Outcome)),
			zap.Int("writes", len(res.Writes)),
		)
		r.executeWrites(ctx, res)
		agg.Add(res)
	}

	if err := r.mirrorToList(ctx); err != nil {
		return err
	}

	counts := agg.Counts()
	r.logger.Info("reconciliation finished",
		zap.Int("assets", len(inputs)),
		zap.Int("completed", counts[report.BucketCompleted]),
		zap.Int("upcoming", counts[report.BucketUpcoming]),
		zap.Int("overdue", counts[report.BucketOverdue]),
	)

	wbPath, err := report.WriteWorkbookFile(
		r.cfg.Report.OutputDir,
		r.cfg.Report.FilePrefix,
		today,
		agg.Sheets(r.policy.Variant),
	)
	if err != nil {
		return err
	}
	r.logger.Info("workbook written", zap.String("path", wbPath))

	if err := r.sendReport(today, wbPath); err != nil {
		return err
	}

	if err := report.Archive(wbPath, r.cfg.Report.ArchiveDir, r.cfg.Report.ArchiveKeep); err != nil {
		return err
	}
	r.logger.Info("run finished")
	return nil
}

// queryAssets reads every configured asset layer. A layer queried twice
// (legacy Operator and PE schedules share their features) is fetched once
// per category because the field maps differ.
func (r *Runner) queryAssets(ctx context.Context, builder *snapshot.Builder) ([]domain.Asset, error) {
	var assets []domain.Asset
	for _, cat := range r.categories {
		binding := r.bindings[cat]
		feats, err := r.store.Query(ctx, binding.layer, "1=1")
		if err != nil {
			return nil, fmt.Errorf("failed to query %s assets: %w", cat, err)
		}
		mapped := builder.Assets(feats, cat, binding.fields)
		r.logger.Info("asset layer queried",
			zap.String("category", string(cat)),
			zap.Int("layer", binding.layer),
			zap.Int("features", len(feats)),
			zap.Int("scheduled", len(mapped)),
		)
		assets = append(assets, mapped...)
	}
	return assets, nil
}

func (r *Runner) queryWorkOrders(ctx context.Context, builder *snapshot.Builder) (orders, history []domain.WorkOrder, err error) {
	feats, err := r.store.Query(ctx, r.cfg.Service.WorkOrderLayer, "1=1")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query work orders: %w", err)
	}
	orders = builder.WorkOrders(feats)

	if r.policy.Variant == reconcile.VariantUnified && r.cfg.Service.WorkOrderTable >= 0 {
		rows, err := r.store.Query(ctx, r.cfg.Service.WorkOrderTable, "1=1")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to query work order table: %w", err)
		}
		history = builder.WorkOrders(rows)
	}

	r.logger.Info("work orders queried",
		zap.Int("orders", len(orders)),
		zap.Int("history_rows", len(history)),
	)
	return orders, history, nil
}

// sendReport mails the workbook to the business distribution. When a report
// weekday is configured, other weekdays skip the send; the workbook is still
// archived.
func (r *Runner) sendReport(today time.Time, wbPath string) error {
	if day, ok := r.cfg.ReportDay(); ok && today.Weekday() != day {
		r.logger.Info("report email skipped",
			zap.String("report_day", day.String()),
			zap.String("today", today.Weekday().String()),
		)
		return nil
	}
	return r.notifier.Send(notify.Message{
		To:         r.cfg.Email.To,
		Cc:         r.cfg.Email.CC,
		Subject:    r.cfg.Email.Subject,
		Body:       r.cfg.Email.Body,
		Attachment: wbPath,
	})
}
