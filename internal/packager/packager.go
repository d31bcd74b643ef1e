// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package packager turns source files into encrypted HLS assets and uploads them.
//
// Assets are processed one at a time. A failure aborts only the current asset;
// the batch continues with the next file and reports a summary at the end.
package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ManuGH/hlsvault/internal/asset"
	"github.com/ManuGH/hlsvault/internal/encoder"
	"github.com/ManuGH/hlsvault/internal/fault"
	"github.com/ManuGH/hlsvault/internal/keys"
	xglog "github.com/ManuGH/hlsvault/internal/log"
	"github.com/ManuGH/hlsvault/internal/metrics"
	"github.com/ManuGH/hlsvault/internal/storage"
	"github.com/ManuGH/hlsvault/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoSources is returned by ProcessDir when the input directory holds no
// file with a configured extension.
var ErrNoSources = errors.New("no source files found")

// Config holds configuration for packaging runs.
type Config struct {
	InputDir   string
	OutputDir  string
	Extensions []string // matched case-insensitively, e.g. ".mp4"
}

// Recorder persists asset state transitions. The ledger implements it.
type Recorder interface {
	Record(ctx context.Context, a asset.VideoAsset, reason string) error
}

// Deps are the collaborators of a Packager.
type Deps struct {
	Encoder  *encoder.Encoder
	Keys     *keys.Manager
	Uploader *storage.Uploader
	Ledger   Recorder // optional
}

// Result is the outcome for one source file.
type Result struct {
	Asset    asset.VideoAsset
	Report   storage.Report
	Duration time.Duration
	Err      error
}

// Summary reports a batch run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Results   []Result
}

// Packager drives encode, key and upload for each asset.
type Packager struct {
	cfg  Config
	deps Deps
}

// New returns a Packager.
func New(cfg Config, deps Deps) *Packager {
	return &Packager{cfg: cfg, deps: deps}
}

// Process packages a single source file: prepare a clean staging directory,
// generate and persist a fresh key, run both transcoder passes, then upload.
func (p *Packager) Process(ctx context.Context, source string) Result {
	start := time.Now()
	id, err := asset.IDFromSource(source)
	if err != nil {
		a := asset.VideoAsset{Source: source, State: asset.StateFailed}
		res := Result{Asset: a, Err: fault.Validation("derive asset id", err)}
		p.fail(ctx, &res, start, false)
		return res
	}
	return p.process(ctx, asset.VideoAsset{
		ID:     id,
		Source: source,
		Dir:    filepath.Join(p.cfg.OutputDir, id),
		State:  asset.StatePending,
	}, start)
}

func (p *Packager) process(ctx context.Context, a asset.VideoAsset, start time.Time) Result {
	ctx = xglog.ContextWithJobID(ctx, a.ID)
	logger := xglog.WithComponentFromContext(ctx, "packager").With().
		Str(xglog.FieldAssetID, a.ID).
		Str(xglog.FieldSource, a.Source).
		Logger()
	ctx = logger.WithContext(ctx)

	ctx, span := telemetry.Tracer("hlsvault/packager").Start(ctx, "package.asset",
		trace.WithAttributes(telemetry.AssetAttributes(a.ID, "", "")...))
	res := Result{Asset: a}
	defer func() {
		span.SetAttributes(telemetry.PackageAttributes(string(res.Asset.State), res.Report.SegmentObjects)...)
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, "packaging failed")
		}
		span.End()
	}()

	p.record(ctx, res.Asset, "")
	logger.Info().Str(xglog.FieldEvent, "package.asset_started").Msg("packaging asset")

	if err := p.encode(ctx, a); err != nil {
		res.Err = err
		p.fail(ctx, &res, start, true)
		return res
	}
	p.transition(ctx, &res, asset.StatePackaged)

	rep, err := p.deps.Uploader.UploadAsset(ctx, a.ID, a.Dir)
	res.Report = rep
	if err != nil {
		res.Err = err
		p.fail(ctx, &res, start, true)
		return res
	}
	p.transition(ctx, &res, asset.StateUploaded)

	res.Duration = time.Since(start)
	metrics.IncPackageAsset(true)
	logger.Info().
		Str(xglog.FieldEvent, "package.asset_uploaded").
		Int("control_objects", rep.ControlObjects).
		Int("segment_objects", rep.SegmentObjects).
		Dur("duration", res.Duration).
		Msg("asset packaged and uploaded")
	return res
}

func (p *Packager) encode(ctx context.Context, a asset.VideoAsset) error {
	if _, err := os.Stat(a.Source); err != nil {
		return fault.Validation("open source", err)
	}
	if err := p.deps.Encoder.Prepare(a.Dir); err != nil {
		return err
	}

	key, err := p.deps.Keys.Generate()
	if err != nil {
		// Exhausted entropy is not recoverable for this process.
		return fmt.Errorf("generate key: %w", err)
	}
	files, err := p.deps.Keys.Persist(ctx, a.Dir, key)
	if err != nil {
		return err
	}

	return p.deps.Encoder.Encode(ctx, encoder.Job{
		AssetID:     a.ID,
		Source:      a.Source,
		Dir:         a.Dir,
		KeyInfoPath: files.KeyInfoPath,
	})
}

func (p *Packager) transition(ctx context.Context, res *Result, to asset.State) {
	from := res.Asset.State
	res.Asset.State = to
	xglog.FromContext(ctx).Debug().
		Str(xglog.FieldOldState, string(from)).
		Str(xglog.FieldNewState, string(to)).
		Msg("asset state changed")
	p.record(ctx, res.Asset, "")
}

func (p *Packager) fail(ctx context.Context, res *Result, start time.Time, record bool) {
	res.Asset.State = asset.StateFailed
	res.Duration = time.Since(start)
	metrics.IncPackageAsset(false)
	if record {
		p.record(ctx, res.Asset, res.Err.Error())
	}
	xglog.FromContext(ctx).Error().
		Err(res.Err).
		Str(xglog.FieldEvent, "package.asset_failed").
		Str(xglog.FieldSource, res.Asset.Source).
		Dur("duration", res.Duration).
		Msg("asset packaging failed")
}

// record is best effort; a ledger failure never fails the asset.
func (p *Packager) record(ctx context.Context, a asset.VideoAsset, reason string) {
	if p.deps.Ledger == nil {
		return
	}
	if err := p.deps.Ledger.Record(ctx, a, reason); err != nil {
		xglog.FromContext(ctx).Warn().
			Err(err).
			Str(xglog.FieldEvent, "package.ledger_write_failed").
			Str(xglog.FieldNewState, string(a.State)).
			Msg("could not record asset state")
	}
}

// Sources lists the files in the input directory with a configured extension,
// sorted by name.
func (p *Packager) Sources() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.InputDir)
	if err != nil {
		return nil, fault.Storage("read input dir", err)
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !p.matches(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(p.cfg.InputDir, e.Name()))
	}
	slices.Sort(out)
	return out, nil
}

func (p *Packager) matches(name string) bool {
	ext := filepath.Ext(name)
	for _, want := range p.cfg.Extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// ProcessDir packages every source in the input directory sequentially.
// Individual failures are counted in the summary; the returned error is
// reserved for run-level problems (unreadable or empty input, cancellation).
func (p *Packager) ProcessDir(ctx context.Context) (Summary, error) {
	logger := xglog.WithComponentFromContext(ctx, "packager")

	sources, err := p.Sources()
	if err != nil {
		return Summary{}, err
	}
	if len(sources) == 0 {
		return Summary{}, fault.Validation("scan input dir", fmt.Errorf("%w in %s", ErrNoSources, p.cfg.InputDir))
	}

	logger.Info().
		Str(xglog.FieldEvent, "package.batch_started").
		Int("sources", len(sources)).
		Str("input_dir", p.cfg.InputDir).
		Msg("starting batch")

	var sum Summary
	seen := make(map[string]string, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "package.batch_cancelled").Msg("batch cancelled")
			return sum, err
		}

		var res Result
		id, idErr := asset.IDFromSource(src)
		switch {
		case idErr != nil:
			res = p.Process(ctx, src)
		case seen[id] != "":
			start := time.Now()
			res = Result{
				Asset: asset.VideoAsset{ID: id, Source: src, State: asset.StateFailed},
				Err:   fault.Validationf("derive asset id", "asset id %q already used by %s", id, seen[id]),
			}
			// The earlier file owns the ledger row and the output directory.
			p.fail(ctx, &res, start, false)
		default:
			seen[id] = src
			res = p.Process(ctx, src)
		}

		sum.Total++
		if res.Err != nil {
			sum.Failed++
		} else {
			sum.Succeeded++
		}
		sum.Results = append(sum.Results, res)
	}

	logger.Info().
		Str(xglog.FieldEvent, "package.batch_finished").
		Int("total", sum.Total).
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Msg("batch finished")
	return sum, nil
}
