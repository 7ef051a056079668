package browser

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"

	"github.com/voidmaw/regflow/internal/motion"
)

// centerJitterFraction offsets click targets from the exact element center by
// up to this fraction of the element's width and height.
const centerJitterFraction = 0.15

// Idle drift parameters for hesitation during long pauses.
const (
	driftAmplitudePx = 3.0
	driftInterval    = 50 * time.Millisecond
	driftMinPause    = time.Second
)

// InteractorOptions tunes the humanlike input layer.
type InteractorOptions struct {
	// Speed divides every pause; 2.0 halves all human pacing.
	Speed float64
	// DebugCursor renders an on-page dot tracking dispatched mouse moves.
	DebugCursor bool
	// Rng overrides the random source, for deterministic tests.
	Rng *rand.Rand
}

// Interactor layers humanlike motion and pacing on top of a PageDriver. It
// tracks the virtual cursor position across actions so that each movement
// starts where the previous one ended.
type Interactor struct {
	driver PageDriver
	motion *motion.Synthesizer
	logger *zap.Logger

	speed       float64
	debugCursor bool

	mu     sync.Mutex
	rng    *rand.Rand
	cursor motion.Point
	noiseX *perlin.Perlin
	noiseY *perlin.Perlin
}

// NewInteractor builds an interactor bound to one driver and one synthesizer.
// The initial cursor rests at a random position in the upper-left area of the
// viewport, the way a fresh browser window usually finds the pointer.
func NewInteractor(driver PageDriver, synth *motion.Synthesizer, opts InteractorOptions, logger *zap.Logger) *Interactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := opts.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	speed := opts.Speed
	if speed <= 0 {
		speed = 1
	}
	seed := rng.Int63()
	it := &Interactor{
		driver:      driver,
		motion:      synth,
		logger:      logger.Named("interactor"),
		speed:       speed,
		debugCursor: opts.DebugCursor,
		rng:         rng,
		noiseX:      perlin.NewPerlin(2, 2, 3, seed),
		noiseY:      perlin.NewPerlin(2, 2, 3, seed+1),
	}
	it.cursor = motion.Point{
		X: it.uniform(100, 400),
		Y: it.uniform(100, 300),
	}
	return it
}

// Cursor returns the tracked cursor position.
func (it *Interactor) Cursor() motion.Point {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.cursor
}

// SetCursor overrides the tracked position, e.g. after a page navigation
// resets the pointer.
func (it *Interactor) SetCursor(p motion.Point) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.cursor = p
}

// MoveToElement synthesizes a trajectory from the current cursor position to
// a jittered point inside the element and replays it as paced mouse moves.
func (it *Interactor) MoveToElement(ctx context.Context, el ElementHandle) error {
	geo, err := it.driver.Geometry(ctx, el)
	if err != nil {
		return err
	}
	target := it.jitteredCenter(geo)

	path := it.motion.GeneratePath(it.Cursor(), target)
	delays := it.motion.CalculateDelays(path)

	for i, p := range path {
		if err := it.driver.DispatchMouseMove(ctx, p.X, p.Y); err != nil {
			return err
		}
		it.moveCursorOverlay(ctx, p)
		if i < len(delays) {
			if err := sleepCtx(ctx, delays[i]); err != nil {
				return err
			}
		}
	}
	it.SetCursor(target)
	return nil
}

// Click approaches the element with a humanlike movement, then performs the
// logical click through the driver.
func (it *Interactor) Click(ctx context.Context, el ElementHandle) error {
	if err := it.MoveToElement(ctx, el); err != nil {
		return err
	}
	return it.driver.Click(ctx, el)
}

// TypeInto sends text one character at a time with per-character pacing drawn
// from the speed profile. Punctuation adds reach time, a few keystrokes
// hesitate, and typing accelerates once a rhythm is established.
func (it *Interactor) TypeInto(ctx context.Context, el ElementHandle, text string, profile SpeedProfile) error {
	rng, ok := profileRanges[profile]
	if !ok {
		rng = profileRanges[ProfileNormal]
	}

	for i, ch := range text {
		if err := it.driver.SendKeys(ctx, el, string(ch)); err != nil {
			return err
		}

		delay := it.uniformDur(rng.min, rng.max)
		if strings.ContainsRune(punctuationChars, ch) {
			delay += it.uniformDur(punctuationExtraMin, punctuationExtraMax)
		}
		if it.chance(hesitationProbability) {
			delay += it.uniformDur(hesitationExtraMin, hesitationExtraMax)
		}
		if i > burstAfterChars-1 && it.chance(burstProbability) {
			delay = time.Duration(float64(delay) * burstFactor)
		}
		if err := sleepCtx(ctx, time.Duration(float64(delay)/it.speed)); err != nil {
			return err
		}
	}
	return nil
}

// Pause waits a humanlike interval from the named band, scaled by the global
// speed multiplier. Longer pauses keep the cursor alive with subtle drift.
func (it *Interactor) Pause(ctx context.Context, band Band) error {
	r, ok := bandRanges[band]
	if !ok {
		r = bandRanges[BandAction]
	}
	max := r.max
	if band != BandMicro && it.chance(distractionProbability) {
		max += it.uniformDur(distractionStretchMin, distractionStretchMax)
	}
	d := time.Duration(float64(it.uniformDur(r.min, max)) / it.speed)

	if d >= driftMinPause && (band == BandThinking || band == BandPage) {
		return it.idleDrift(ctx, d)
	}
	return sleepCtx(ctx, d)
}

// SleepRange waits a uniform random duration in [min, max], unscaled. Used
// where a step dictates its own cadence, like per-digit code entry.
func (it *Interactor) SleepRange(ctx context.Context, min, max time.Duration) error {
	return sleepCtx(ctx, it.uniformDur(min, max))
}

// idleDrift sleeps in small slices while wandering the cursor with Perlin
// noise around its resting point, so long pauses don't look like a frozen
// pointer.
func (it *Interactor) idleDrift(ctx context.Context, d time.Duration) error {
	rest := it.Cursor()
	deadline := time.Now().Add(d)
	var elapsed float64
	for time.Now().Before(deadline) {
		elapsed += driftInterval.Seconds()
		p := motion.Point{
			X: rest.X + it.noiseX.Noise1D(elapsed)*driftAmplitudePx,
			Y: rest.Y + it.noiseY.Noise1D(elapsed)*driftAmplitudePx,
		}
		if err := it.driver.DispatchMouseMove(ctx, p.X, p.Y); err != nil {
			// Drift is decoration; losing it must not fail the pause.
			it.logger.Debug("Idle drift dispatch failed", zap.Error(err))
			return sleepCtx(ctx, time.Until(deadline))
		}
		it.moveCursorOverlay(ctx, p)
		if err := sleepCtx(ctx, driftInterval); err != nil {
			return err
		}
	}
	return nil
}

// jitteredCenter picks a target inside the element, offset from its exact
// center by up to 15% of each dimension so repeated clicks don't land on the
// same pixel.
func (it *Interactor) jitteredCenter(geo ElementGeometry) motion.Point {
	return motion.Point{
		X: geo.X + geo.Width/2 + it.uniform(-geo.Width*centerJitterFraction, geo.Width*centerJitterFraction),
		Y: geo.Y + geo.Height/2 + it.uniform(-geo.Height*centerJitterFraction, geo.Height*centerJitterFraction),
	}
}

func (it *Interactor) uniform(min, max float64) float64 {
	it.mu.Lock()
	defer it.mu.Unlock()
	return min + it.rng.Float64()*(max-min)
}

func (it *Interactor) uniformDur(min, max time.Duration) time.Duration {
	return time.Duration(it.uniform(float64(min), float64(max)))
}

func (it *Interactor) chance(p float64) bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.rng.Float64() < p
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// --- Debug cursor overlay ---

const cursorInjectJS = `(function(){if(document.getElementById('__debug_cursor__'))return;const c=document.createElement('div');c.id='__debug_cursor__';c.style.cssText='position:fixed;width:12px;height:12px;background:rgba(255,50,50,0.8);border:2px solid white;border-radius:50%;pointer-events:none;z-index:999999;transform:translate(-50%,-50%);box-shadow:0 0 4px rgba(0,0,0,0.5);transition:none';document.body.appendChild(c)})();`

const cursorMoveJS = `(function(x,y){const c=document.getElementById('__debug_cursor__');if(c){c.style.left=x+'px';c.style.top=y+'px'}})(%f,%f);`

// EnsureCursorOverlay injects the visual cursor after a navigation when debug
// rendering is enabled. Failures are swallowed; the overlay is a dev aid.
func (it *Interactor) EnsureCursorOverlay(ctx context.Context) {
	if !it.debugCursor {
		return
	}
	if err := it.driver.Evaluate(ctx, cursorInjectJS, nil); err != nil {
		it.logger.Debug("Cursor overlay injection failed", zap.Error(err))
		return
	}
	it.moveCursorOverlay(ctx, it.Cursor())
}

func (it *Interactor) moveCursorOverlay(ctx context.Context, p motion.Point) {
	if !it.debugCursor {
		return
	}
	script := fmt.Sprintf(cursorMoveJS, p.X, p.Y)
	if err := it.driver.Evaluate(ctx, script, nil); err != nil {
		it.logger.Debug("Cursor overlay move failed", zap.Error(err))
	}
}
