package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eprouveze/gslides-translator/internal/retry"
)

// Progress sub-ranges per stage, keeping the overall percentage monotonic
// across stage boundaries.
const (
	authDonePct      = 2
	extractDonePct   = 10
	translateEndPct  = 80
	rewriteDuplicate = 85
)

// Authenticator verifies that credentials are usable before any collaborator
// is called.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// Extractor reads the source presentation and returns its text fragments in
// document order.
type Extractor interface {
	Extract(ctx context.Context, presentationID string) ([]Fragment, error)
}

// Translator translates one batch of unique strings. A structural mismatch
// between request and response must surface as ErrStructuralMismatch.
type Translator interface {
	TranslateBatch(ctx context.Context, batch TranslationBatch, sourceLang, targetLang string) (TranslationResult, error)
}

// Writer owns the target presentation: duplicating the source and applying
// the update plan to the duplicate.
type Writer interface {
	Duplicate(ctx context.Context, presentationID, targetLang string) (newID, link string, err error)
	ApplyUpdates(ctx context.Context, presentationID string, updates []UpdateRequest) error
}

// RecoveryStore persists per-batch translation results so an interrupted run
// does not redo already-translated batches. Implementations are bound to one
// job.
type RecoveryStore interface {
	Load(ctx context.Context) (TranslationResult, error)
	SaveBatch(ctx context.Context, batch TranslationResult) error
}

// Config holds the flat pipeline configuration.
type Config struct {
	SourceLang    string
	TargetLang    string
	MaxBatchItems int
	MaxBatchChars int
	Retry         retry.Config
	Logger        *slog.Logger
}

// Deps wires the external collaborators into the driver. Auth and Recovery
// are optional.
type Deps struct {
	Auth       Authenticator
	Extractor  Extractor
	Translator Translator
	Writer     Writer
	Recovery   RecoveryStore
	Progress   *Progress
}

// Driver runs the pipeline as an explicit state machine:
// Idle -> Authenticating -> Extracting -> Deduplicating -> Translating ->
// Rewriting -> Finalizing -> Done, with Failed reachable from any
// non-terminal state. A Driver runs exactly once.
type Driver struct {
	cfg      Config
	deps     Deps
	retryer  *retry.Retryer
	progress *Progress
	logger   *slog.Logger
}

// NewDriver creates a pipeline driver.
func NewDriver(cfg Config, deps Deps) *Driver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if deps.Progress == nil {
		deps.Progress = NewProgress()
	}
	cfg.Retry.Logger = cfg.Logger
	return &Driver{
		cfg:      cfg,
		deps:     deps,
		retryer:  retry.New(cfg.Retry),
		progress: deps.Progress,
		logger:   cfg.Logger,
	}
}

// Progress exposes the driver's progress state for pollers.
func (d *Driver) Progress() *Progress {
	return d.progress
}

// Run executes the full pipeline against the given presentation and returns
// the link to the translated duplicate.
func (d *Driver) Run(ctx context.Context, presentationID string) (string, error) {
	d.transition(StateAuthenticating, "authenticating")
	if d.deps.Auth != nil {
		if err := d.deps.Auth.Authenticate(ctx); err != nil {
			return "", d.fail(fmt.Errorf("%w: %v", ErrAuthFailed, err))
		}
	}
	d.progress.SetPercent(authDonePct)

	d.transition(StateExtracting, "reading presentation "+presentationID)
	fragments, err := d.deps.Extractor.Extract(ctx, presentationID)
	if err != nil {
		return "", d.fail(fmt.Errorf("%w: %v", ErrSourceRead, err))
	}
	if countNonEmpty(fragments) == 0 {
		return "", d.fail(fmt.Errorf("%w: presentation %s", ErrNoTranslatableText, presentationID))
	}
	d.progress.Logf("extracted %d text fragments", len(fragments))
	d.progress.SetPercent(extractDonePct)

	d.transition(StateDeduplicating, "deduplicating")
	dd := Dedupe(fragments)
	batches := MakeBatches(dd.Units, d.cfg.MaxBatchItems, d.cfg.MaxBatchChars)
	d.progress.Logf("%d unique strings in %d batches", dd.UniqueCount(), len(batches))

	d.transition(StateTranslating, fmt.Sprintf("translating %s -> %s", d.cfg.SourceLang, d.cfg.TargetLang))
	result, err := d.translate(ctx, dd, batches)
	if err != nil {
		return "", d.fail(err)
	}

	d.transition(StateRewriting, "rewriting")
	plan, err := PlanUpdates(fragments, dd, result)
	if err != nil {
		return "", d.fail(err)
	}

	newID, link, err := d.deps.Writer.Duplicate(ctx, presentationID, d.cfg.TargetLang)
	if err != nil {
		return "", d.fail(fmt.Errorf("%w: duplicate: %v", ErrTargetWrite, err))
	}
	d.progress.Logf("created target presentation %s", newID)
	d.progress.SetPercent(rewriteDuplicate)

	if err := d.deps.Writer.ApplyUpdates(ctx, newID, plan); err != nil {
		// The duplicate stays in place for manual inspection; partially
		// applied work is never deleted.
		d.progress.SetResultLink(link)
		return "", d.fail(fmt.Errorf("%w: %v", ErrTargetWrite, err))
	}
	d.progress.Logf("applied %d text updates", len(plan))

	d.transition(StateFinalizing, "finalizing")
	d.progress.SetResultLink(link)
	d.progress.SetState(StateDone)
	d.progress.Logf("done: %s", link)

	d.logger.Info("pipeline completed",
		slog.String("presentation_id", presentationID),
		slog.String("target_presentation_id", newID),
		slog.Int("fragments", len(fragments)),
		slog.Int("unique", dd.UniqueCount()),
	)
	return link, nil
}

// translate issues the batches sequentially, retrying each failed batch with
// backoff before escalating. Batches already covered by recovered results are
// skipped, and cancellation is checked between batches only, never
// mid-request.
func (d *Driver) translate(ctx context.Context, dd *DedupeResult, batches []TranslationBatch) (TranslationResult, error) {
	result := make(TranslationResult, dd.UniqueCount())

	if d.deps.Recovery != nil {
		prior, err := d.deps.Recovery.Load(ctx)
		if err != nil {
			d.logger.Warn("failed to load recovery state", slog.Any("error", err))
		} else if len(prior) > 0 {
			result.Merge(prior)
			d.progress.Logf("recovered %d previously translated strings", len(prior))
		}
	}

	done := 0
	total := dd.UniqueCount()
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCanceled, err)
		}

		if batchComplete(batch, result) {
			done += len(batch.Units)
			d.reportTranslated(done, total)
			continue
		}

		batchRes, err := retry.DoWithResult(ctx, d.retryer, func(ctx context.Context) (TranslationResult, error) {
			return d.deps.Translator.TranslateBatch(ctx, batch, d.cfg.SourceLang, d.cfg.TargetLang)
		}, translateRetryable)
		if err != nil {
			if errors.Is(err, ErrStructuralMismatch) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: batch %d/%d: %v", ErrTranslateFailed, i+1, len(batches), err)
		}

		for _, u := range batch.Units {
			if _, ok := batchRes[u.ID]; !ok {
				return nil, fmt.Errorf("%w: %s absent from batch %d response", ErrMissingTranslation, u.ID, i+1)
			}
		}
		result.Merge(batchRes)

		if d.deps.Recovery != nil {
			if err := d.deps.Recovery.SaveBatch(ctx, batchRes); err != nil {
				d.logger.Warn("failed to persist batch result", slog.Any("error", err))
			}
		}

		done += len(batch.Units)
		d.reportTranslated(done, total)
	}

	return result, nil
}

// reportTranslated maps unique-item completion into the reserved translation
// sub-range of the overall percentage.
func (d *Driver) reportTranslated(done, total int) {
	if total == 0 {
		return
	}
	pct := extractDonePct + (translateEndPct-extractDonePct)*done/total
	d.progress.SetPercent(pct)
	d.progress.Logf("translated %d/%d unique strings", done, total)
}

func (d *Driver) transition(s State, msg string) {
	d.progress.SetState(s)
	if msg != "" {
		d.progress.Logf("%s", msg)
	}
	d.logger.Debug("pipeline state change", slog.String("state", s.String()))
}

func (d *Driver) fail(err error) error {
	d.progress.Fail(err)
	d.logger.Error("pipeline failed", slog.Any("error", err))
	return err
}

// translateRetryable decides whether a failed batch should be retried.
// Structural mismatches are never reconciled by retrying, and context
// cancellation ends the run immediately.
func translateRetryable(err error) bool {
	if errors.Is(err, ErrStructuralMismatch) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func batchComplete(batch TranslationBatch, result TranslationResult) bool {
	for _, u := range batch.Units {
		if _, ok := result[u.ID]; !ok {
			return false
		}
	}
	return true
}

func countNonEmpty(fragments []Fragment) int {
	n := 0
	for _, f := range fragments {
		if f.Text != "" {
			n++
		}
	}
	return n
}
