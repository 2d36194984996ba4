// Package tracker reconciles the disclosure listing with the row store:
// new records are resolved and appended, then poorly summarized rows are
// re-resolved in place.
package tracker

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/llm"
	"github.com/sells-group/disclosure-cli/internal/model"
	"github.com/sells-group/disclosure-cli/internal/resilience"
	"github.com/sells-group/disclosure-cli/internal/resolve"
	"github.com/sells-group/disclosure-cli/internal/store"
	"github.com/sells-group/disclosure-cli/pkg/cse"
)

// Resolver produces summaries for records.
type Resolver interface {
	Resolve(ctx context.Context, in resolve.Input) resolve.Resolution
	Improve(ctx context.Context, in resolve.Input) (resolve.Resolution, bool)
}

// Options tunes pacing and retries.
type Options struct {
	// ItemDelay separates consecutive processed records and backfill candidates.
	ItemDelay time.Duration
	// Location renders record timestamps. Nil means UTC.
	Location *time.Location
	// ListRetry governs retries of the announcement listing.
	ListRetry resilience.RetryConfig
}

// Tracker runs reconciliation passes. A Tracker holds no per-run state and
// may be reused.
type Tracker struct {
	source   cse.Client
	store    store.Store
	resolver Resolver
	opts     Options
}

// New creates a Tracker.
func New(source cse.Client, st store.Store, resolver Resolver, opts Options) *Tracker {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Tracker{source: source, store: st, resolver: resolver, opts: opts}
}

// IngestResult summarizes phase 1.
type IngestResult struct {
	Keys       model.KeySet   `json:"-"`
	New        int            `json:"new"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Rows       int            `json:"rows"`
	Strategies map[string]int `json:"strategies"`
}

// BackfillResult summarizes phase 2.
type BackfillResult struct {
	Candidates int `json:"candidates"`
	Updated    int `json:"updated"`
	Failed     int `json:"failed"`
}

// RunReport describes one pass.
type RunReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Listed     int            `json:"listed"`
	Ingest     IngestResult   `json:"ingest"`
	Backfill   BackfillResult `json:"backfill"`
	Error      string         `json:"error,omitempty"`
}

// Run lists announcements and runs both phases. A listing failure aborts
// before anything is written.
func (t *Tracker) Run(ctx context.Context) (*RunReport, error) {
	return t.run(ctx, true)
}

// RunBackfill lists announcements and runs phase 2 only.
func (t *Tracker) RunBackfill(ctx context.Context) (*RunReport, error) {
	return t.run(ctx, false)
}

func (t *Tracker) run(ctx context.Context, ingest bool) (report *RunReport, err error) {
	report = &RunReport{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}
	log := zap.L().With(zap.String("run_id", report.RunID))
	ctx = withLogger(ctx, log)
	log.Info("tracker: run started", zap.Bool("ingest", ingest))

	defer func() {
		report.FinishedAt = time.Now().UTC()
		if err != nil {
			report.Error = err.Error()
			log.Error("tracker: run failed", zap.Error(err))
			return
		}
		log.Info("tracker: run finished",
			zap.Int("listed", report.Listed),
			zap.Int("new", report.Ingest.New),
			zap.Int("rows", report.Ingest.Rows),
			zap.Int("backfilled", report.Backfill.Updated),
			zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
		)
	}()

	records, err := t.list(ctx)
	if err != nil {
		return report, err
	}
	report.Listed = len(records)

	if err := t.store.EnsureHeader(context.WithoutCancel(ctx)); err != nil {
		return report, eris.Wrap(err, "tracker: ensure header")
	}

	if ingest {
		existing, err := t.store.ReadAllRows(ctx)
		if err != nil {
			return report, eris.Wrap(err, "tracker: read existing rows")
		}
		report.Ingest, err = t.Ingest(ctx, records, model.KeysOf(existing))
		if err != nil {
			return report, err
		}
	}

	report.Backfill, err = t.Backfill(ctx, records)
	return report, err
}

// list fetches the announcement listing, retrying transient failures.
func (t *Tracker) list(ctx context.Context) ([]model.Record, error) {
	cfg := t.opts.ListRetry
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = retryableListing
	}
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("cse", "list_announcements")
	}
	items, err := resilience.DoVal(ctx, cfg, t.source.ListAnnouncements)
	if err != nil {
		return nil, eris.Wrap(err, "tracker: source unavailable")
	}
	return model.NewRecords(items, t.opts.Location), nil
}

// retryableListing retries transport failures that are not definitive
// client errors. Malformed and empty responses are final.
func retryableListing(err error) bool {
	var fe *cse.FetchError
	if !eris.As(err, &fe) {
		return resilience.IsTransient(err)
	}
	if fe.Kind != cse.FetchTransport {
		return false
	}
	return fe.StatusCode == 0 || resilience.IsTransientHTTPStatus(fe.StatusCode)
}

// Ingest appends rows for every record whose key is not in keys and returns
// keys extended with what was written. A record whose rows cannot be
// persisted is logged and retried on the next run. Only cancellation stops
// the loop early.
func (t *Tracker) Ingest(ctx context.Context, records []model.Record, keys model.KeySet) (IngestResult, error) {
	log := loggerFrom(ctx)
	res := IngestResult{Keys: keys, Strategies: make(map[string]int)}

	processed := 0
	for _, rec := range records {
		key := rec.UniqueKey()
		if res.Keys.Known(key) {
			res.Skipped++
			continue
		}
		if processed > 0 {
			if err := resilience.Sleep(ctx, t.opts.ItemDelay); err != nil {
				return res, eris.Wrap(err, "tracker: ingest interrupted")
			}
		} else if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "tracker: ingest interrupted")
		}
		processed++

		rlog := log.With(zap.String("key", key), zap.String("company", rec.Company))
		detail := t.detail(ctx, rec, rlog)
		links := detail.DocumentURLs()

		resolution := t.resolver.Resolve(ctx, resolve.Input{
			Company:   rec.Company,
			Category:  rec.Category,
			Detail:    detail,
			Documents: links,
		})
		res.Strategies[resolution.Strategy.String()]++

		rows := model.BuildRows(rec, resolution.Summary, links)
		n, err := t.store.AppendRows(context.WithoutCancel(ctx), rows)
		if err != nil {
			res.Failed++
			rlog.Error("tracker: append rows failed", zap.Error(err))
			continue
		}

		written := make([]string, 0, len(rows))
		for _, r := range rows {
			written = append(written, r.UniqueKey)
		}
		res.Keys = res.Keys.With(written...)
		res.New++
		res.Rows += n
		rlog.Info("tracker: record added",
			zap.String("strategy", resolution.Strategy.String()),
			zap.Int("documents", len(links)),
			zap.Int("rows", n),
		)
	}
	return res, nil
}

// Backfill re-resolves stored rows whose summary is empty or degenerate and
// rewrites the summary cell when a better one is found. records supplies
// detail payloads for the rows.
func (t *Tracker) Backfill(ctx context.Context, records []model.Record) (BackfillResult, error) {
	log := loggerFrom(ctx)
	var res BackfillResult

	rows, err := t.store.ReadAllRows(ctx)
	if err != nil {
		return res, eris.Wrap(err, "tracker: read rows for backfill")
	}

	var candidates []model.StoredRow
	for _, r := range rows {
		if llm.IsFallback(r.Summary) {
			candidates = append(candidates, r)
		}
	}
	res.Candidates = len(candidates)
	if len(candidates) == 0 {
		return res, nil
	}
	log.Info("tracker: backfilling", zap.Int("candidates", len(candidates)))

	details := make(map[cse.ID]*model.Detail)
	for i, row := range candidates {
		if i > 0 {
			if err := resilience.Sleep(ctx, t.opts.ItemDelay); err != nil {
				return res, eris.Wrap(err, "tracker: backfill interrupted")
			}
		} else if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "tracker: backfill interrupted")
		}

		rlog := log.With(zap.String("key", row.UniqueKey), zap.Int("row", row.Index))
		in := resolve.Input{Company: row.Company, Category: row.Subject}
		if rec, ok := matchRecord(records, row.Row); ok {
			d, cached := details[rec.ID]
			if !cached {
				d = t.detail(ctx, rec, rlog)
				details[rec.ID] = d
			}
			in.Detail = d
		}
		if in.Detail == nil && !fanOutDescription(row.Description) {
			in.Detail = &model.Detail{Company: row.Company, Description: row.Description}
		}
		if link := row.Link(); link != "" {
			in.Documents = []string{link}
		}

		resolution, ok := t.resolver.Improve(ctx, in)
		if !ok {
			res.Failed++
			rlog.Debug("tracker: no better summary")
			continue
		}
		if err := t.store.UpdateCell(context.WithoutCancel(ctx), row.Index, model.ColSummary, resolution.Summary); err != nil {
			res.Failed++
			rlog.Error("tracker: update summary failed", zap.Error(err))
			continue
		}
		res.Updated++
		rlog.Info("tracker: summary backfilled", zap.String("strategy", resolution.Strategy.String()))
	}
	return res, nil
}

// detail fetches and converts a record's detail. Absence is tolerated.
func (t *Tracker) detail(ctx context.Context, rec model.Record, log *zap.Logger) *model.Detail {
	raw, err := t.source.GetDetail(context.WithoutCancel(ctx), rec.ID)
	if err != nil {
		log.Warn("tracker: detail unavailable",
			zap.String("op", "get_detail"),
			zap.Stringer("kind", cse.KindOf(err)),
			zap.Error(err),
		)
		return nil
	}
	d := model.NewDetail(raw)
	if d != nil && d.Company == "" {
		d.Company = rec.Company
	}
	return d
}

// matchRecord finds the polled record a stored row came from: the one whose
// key prefixes the row key, else the first with the same company and
// category.
func matchRecord(records []model.Record, row model.Row) (model.Record, bool) {
	for _, rec := range records {
		if k := rec.UniqueKey(); row.UniqueKey == k || strings.HasPrefix(row.UniqueKey, k+model.KeySeparator) {
			return rec, true
		}
	}
	for _, rec := range records {
		if rec.Matches(row.Company, row.Subject) {
			return rec, true
		}
	}
	return model.Record{}, false
}

func fanOutDescription(s string) bool {
	return strings.HasPrefix(s, "PDF ") && strings.Contains(s, " of ")
}

type loggerKey struct{}

func withLogger(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

func loggerFrom(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return log
	}
	return zap.L()
}
