// Package workspace holds the state of one interactive pixel-art editing
// session: the opened source image, the pipeline parameters, the derived
// images and an optional manual touch-up session.
//
// Block size and target size changes are debounced so that a burst of slider
// updates recomputes the pipeline once. All other parameter changes are
// applied immediately. Every method is safe for concurrent use.
package workspace

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/ironsheep/pixelart/internal/debounce"
	"github.com/ironsheep/pixelart/internal/imaging"
	"github.com/ironsheep/pixelart/internal/stroke"
)

var (
	// ErrNoImage is returned by operations that need an opened image.
	ErrNoImage = errors.New("no image open")

	// ErrNoManual is returned by stroke operations outside a manual session.
	ErrNoManual = errors.New("no manual session active")
)

// DefaultTolerance is the keying tolerance used until SetTolerance is called.
const DefaultTolerance = 16

// Params are the pipeline parameters as last requested by the caller.
type Params struct {
	BlockSize     int            `json:"block_size"`
	Width         int            `json:"width"`
	Height        int            `json:"height"`
	AspectLock    bool           `json:"aspect_lock"`
	Background    color.NRGBA    `json:"-"`
	Tolerance     int            `json:"tolerance"`
	Keying        bool           `json:"keying"`
	Feather       float64        `json:"feather"`
	PaletteColors int            `json:"palette_colors"`
	Filter        imaging.Filter `json:"-"`
}

// DefaultParams returns the parameters of a fresh workspace.
func DefaultParams() Params {
	return Params{
		BlockSize:  1,
		Background: imaging.DefaultBackground,
		Tolerance:  DefaultTolerance,
		Filter:     imaging.FilterLinear,
	}
}

// Config configures a Workspace. The zero value is usable.
type Config struct {
	// Cache decodes source images. A private cache is created when nil.
	Cache *imaging.ImageCache

	// Logger receives pipeline events. slog.Default() is used when nil.
	Logger *slog.Logger

	// Delay is the debounce period for block and target size changes.
	// debounce.DefaultDelay is used when zero.
	Delay time.Duration
}

type blockRequest struct {
	size  int
	epoch uint64
}

type sizeRequest struct {
	size  image.Point
	epoch uint64
}

// Workspace runs Pixelate → Resize → QuantizePalette → KeyBackground →
// Feather over an opened image and keeps every intermediate result.
type Workspace struct {
	cache  *imaging.ImageCache
	logger *slog.Logger

	blockDebounce *debounce.Coalescer[blockRequest]
	sizeDebounce  *debounce.Coalescer[sizeRequest]

	mu sync.Mutex

	// epoch increments on every Open so late debounced values for a
	// previous image are ignored.
	epoch  uint64
	path   string
	suffix string
	params Params

	appliedBlock int
	appliedSize  image.Point

	source    *image.NRGBA
	pixelated *image.NRGBA
	prepared  *image.NRGBA // resized and quantized, not keyed
	result    *image.NRGBA

	manual *stroke.Session
}

// New creates an empty Workspace.
func New(cfg Config) *Workspace {
	w := &Workspace{
		cache:  cfg.Cache,
		logger: cfg.Logger,
		params: DefaultParams(),
	}
	if w.cache == nil {
		w.cache = imaging.NewImageCache()
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.blockDebounce = debounce.New(cfg.Delay, w.applyBlockSize)
	w.sizeDebounce = debounce.New(cfg.Delay, w.applyTargetSize)
	return w
}

// Close stops the debouncers. Pending changes are dropped.
func (w *Workspace) Close() {
	w.blockDebounce.Stop()
	w.sizeDebounce.Stop()
}

// Open loads path as the new source image.
//
// The block size resets to 1 and the target size to the image size; the
// keying, feather, palette and filter settings carry over. On failure the
// error wraps imaging.ErrIO and the previous image stays open.
func (w *Workspace) Open(path string) error {
	w.cache.Evict(path)
	img, err := w.cache.Load(path)
	if err != nil {
		return err
	}

	w.blockDebounce.Cancel()
	w.sizeDebounce.Cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	src := imaging.ToNRGBA(img)
	size := src.Rect.Size()

	w.epoch++
	w.path = path
	w.suffix = imaging.FileSuffix(path)
	w.source = src
	w.params.BlockSize = 1
	w.params.Width, w.params.Height = size.X, size.Y
	w.appliedBlock = 1
	w.appliedSize = size
	w.discardManualLocked()

	if err := w.rebuildLocked(stagePixelate); err != nil {
		return err
	}

	w.logger.Info("image opened", "path", path, "width", size.X, "height", size.Y,
		"format", w.cache.Format(path))
	return nil
}

// SetBlockSize requests a new pixelation block size. The pipeline is rebuilt
// once the debounce delay passes without further size changes.
func (w *Workspace) SetBlockSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: block size must be positive, got %d", imaging.ErrInvalidParameter, n)
	}

	w.mu.Lock()
	if w.source == nil {
		w.mu.Unlock()
		return ErrNoImage
	}
	w.params.BlockSize = n
	req := blockRequest{size: n, epoch: w.epoch}
	w.mu.Unlock()

	w.blockDebounce.Update(req)
	return nil
}

// SetTargetSize requests an output size of width x height. With the aspect
// lock on, height is derived from width.
func (w *Workspace) SetTargetSize(width, height int) error {
	return w.setTarget(func(src image.Point, locked bool) (image.Point, error) {
		if width <= 0 || height <= 0 {
			return image.Point{}, fmt.Errorf("%w: target size must be positive, got %dx%d",
				imaging.ErrInvalidParameter, width, height)
		}
		if locked {
			height = imaging.AspectLockedHeight(src.X, src.Y, width)
		}
		return image.Pt(width, height), nil
	})
}

// SetTargetWidth changes the output width, and the height too when the aspect
// lock is on.
func (w *Workspace) SetTargetWidth(width int) error {
	return w.setTarget(func(src image.Point, locked bool) (image.Point, error) {
		if width <= 0 {
			return image.Point{}, fmt.Errorf("%w: width must be positive, got %d", imaging.ErrInvalidParameter, width)
		}
		height := w.params.Height
		if locked {
			height = imaging.AspectLockedHeight(src.X, src.Y, width)
		}
		return image.Pt(width, height), nil
	})
}

// SetTargetHeight changes the output height, and the width too when the
// aspect lock is on.
func (w *Workspace) SetTargetHeight(height int) error {
	return w.setTarget(func(src image.Point, locked bool) (image.Point, error) {
		if height <= 0 {
			return image.Point{}, fmt.Errorf("%w: height must be positive, got %d", imaging.ErrInvalidParameter, height)
		}
		width := w.params.Width
		if locked {
			width = imaging.AspectLockedWidth(src.X, src.Y, height)
		}
		return image.Pt(width, height), nil
	})
}

// setTarget computes the new target under the lock and schedules it. The
// aspect ratio is taken from the pixelated image, which has the source size.
func (w *Workspace) setTarget(compute func(src image.Point, locked bool) (image.Point, error)) error {
	w.mu.Lock()
	if w.source == nil {
		w.mu.Unlock()
		return ErrNoImage
	}
	size, err := compute(w.pixelated.Rect.Size(), w.params.AspectLock)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.params.Width, w.params.Height = size.X, size.Y
	req := sizeRequest{size: size, epoch: w.epoch}
	w.mu.Unlock()

	w.sizeDebounce.Update(req)
	return nil
}

// SetAspectLock turns the aspect lock on or off. It affects later size
// changes only.
func (w *Workspace) SetAspectLock(on bool) {
	w.mu.Lock()
	w.params.AspectLock = on
	w.mu.Unlock()
}

// ResetSize immediately sets the target size back to the pixelated image's
// size, dropping any pending size change.
func (w *Workspace) ResetSize() error {
	w.sizeDebounce.Cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.source == nil {
		return ErrNoImage
	}
	size := w.pixelated.Rect.Size()
	w.params.Width, w.params.Height = size.X, size.Y
	w.appliedSize = size
	return w.rebuildLocked(stageResize)
}

// SetBackground sets the color KeyBackground removes.
func (w *Workspace) SetBackground(c color.Color) error {
	if c == nil {
		return fmt.Errorf("%w: background color is nil", imaging.ErrInvalidParameter)
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 255
	return w.update(stageKey, func(p *Params) { p.Background = n })
}

// SetTolerance sets the per-channel keying tolerance.
func (w *Workspace) SetTolerance(t int) error {
	if t < 0 {
		return fmt.Errorf("%w: tolerance must not be negative, got %d", imaging.ErrInvalidParameter, t)
	}
	return w.update(stageKey, func(p *Params) { p.Tolerance = t })
}

// SetKeying turns background keying on or off.
func (w *Workspace) SetKeying(on bool) error {
	return w.update(stageKey, func(p *Params) { p.Keying = on })
}

// SetFeather sets the Gaussian radius applied to the keyed alpha channel.
func (w *Workspace) SetFeather(sigma float64) error {
	if sigma < 0 {
		return fmt.Errorf("%w: feather radius must not be negative, got %g", imaging.ErrInvalidParameter, sigma)
	}
	return w.update(stageKey, func(p *Params) { p.Feather = sigma })
}

// SetPaletteColors limits the output to k colors; 0 disables quantization.
func (w *Workspace) SetPaletteColors(k int) error {
	if k < 0 {
		return fmt.Errorf("%w: palette size must not be negative, got %d", imaging.ErrInvalidParameter, k)
	}
	return w.update(stageResize, func(p *Params) { p.PaletteColors = k })
}

// SetFilter selects the resampling filter.
func (w *Workspace) SetFilter(f imaging.Filter) error {
	return w.update(stageResize, func(p *Params) { p.Filter = f })
}

// update applies change and, when an image is open, rebuilds from stage.
func (w *Workspace) update(from stage, change func(*Params)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	change(&w.params)
	if w.source == nil {
		return nil
	}
	return w.rebuildLocked(from)
}

// Flush applies pending block and target size changes immediately.
func (w *Workspace) Flush() {
	w.blockDebounce.Flush()
	w.sizeDebounce.Flush()
}

func (w *Workspace) applyBlockSize(req blockRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.source == nil || req.epoch != w.epoch {
		return
	}
	w.appliedBlock = req.size
	if err := w.rebuildLocked(stagePixelate); err != nil {
		w.logger.Error("could not apply block size", "block_size", req.size, "error", err)
	}
}

func (w *Workspace) applyTargetSize(req sizeRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.source == nil || req.epoch != w.epoch {
		return
	}
	w.appliedSize = req.size
	if err := w.rebuildLocked(stageResize); err != nil {
		w.logger.Error("could not apply target size", "width", req.size.X, "height", req.size.Y, "error", err)
	}
}

type stage int

const (
	stagePixelate stage = iota
	stageResize
	stageKey
)

// rebuildLocked recomputes the pipeline from stage onward. A manual session
// is discarded since its strokes were made on the old result.
func (w *Workspace) rebuildLocked(from stage) error {
	start := time.Now()
	p := w.params

	if from <= stagePixelate {
		img, err := imaging.Pixelate(w.source, w.appliedBlock)
		if err != nil {
			return err
		}
		w.pixelated = img
	}

	if from <= stageResize {
		img, err := imaging.Resize(w.pixelated, w.appliedSize.X, w.appliedSize.Y, p.Filter)
		if err != nil {
			return err
		}
		if p.PaletteColors > 0 {
			if img, err = imaging.QuantizePalette(img, p.PaletteColors); err != nil {
				return err
			}
		}
		w.prepared = img
	}

	img := w.prepared
	if p.Keying {
		keyed, err := imaging.KeyBackground(img, p.Background, p.Tolerance)
		if err != nil {
			return err
		}
		img = keyed
	}
	if p.Feather > 0 {
		feathered, err := imaging.Feather(img, p.Feather)
		if err != nil {
			return err
		}
		img = feathered
	}
	w.result = img

	if w.manual != nil {
		w.logger.Warn("manual edits discarded by parameter change", "strokes", len(w.manual.History()))
		w.manual = nil
	}

	w.logger.Debug("pipeline rebuilt", "from", from, "block_size", w.appliedBlock,
		"width", w.appliedSize.X, "height", w.appliedSize.Y, "elapsed", time.Since(start))
	return nil
}

// Result returns a copy of the current output, including manual strokes.
// Pending debounced changes are not applied; call Flush first to include them.
func (w *Workspace) Result() (*image.NRGBA, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resultLocked()
}

func (w *Workspace) resultLocked() (*image.NRGBA, error) {
	if w.source == nil {
		return nil, ErrNoImage
	}
	if w.manual != nil {
		return w.manual.Snapshot(), nil
	}
	return imaging.ToNRGBA(w.result), nil
}

// BeginManual starts a manual touch-up session over the current result.
// Erasing restores pixels of the resized image before keying. Calling it while
// a session is active does nothing.
func (w *Workspace) BeginManual() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.beginManualLocked()
}

func (w *Workspace) beginManualLocked() error {
	if w.source == nil {
		return ErrNoImage
	}
	if w.manual != nil {
		return nil
	}
	s, err := stroke.NewSession(imaging.ToNRGBA(w.result), w.prepared)
	if err != nil {
		return err
	}
	w.manual = s
	return nil
}

// EndManual keeps the manual edits as the current result and ends the
// session. The next parameter change recomputes the result without them.
func (w *Workspace) EndManual() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.manual == nil {
		return ErrNoManual
	}
	w.result = w.manual.Snapshot()
	w.manual = nil
	return nil
}

func (w *Workspace) discardManualLocked() {
	w.manual = nil
}

// session returns the active manual session.
func (w *Workspace) session() (*stroke.Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.manual == nil {
		return nil, ErrNoManual
	}
	return w.manual, nil
}

// SetStrokeMode selects the brush mode of the active manual session.
func (w *Workspace) SetStrokeMode(m stroke.Mode) error {
	s, err := w.session()
	if err != nil {
		return err
	}
	return s.SetMode(m)
}

// SetStrokeWidth sets the brush diameter of the active manual session.
func (w *Workspace) SetStrokeWidth(width float64) error {
	s, err := w.session()
	if err != nil {
		return err
	}
	return s.SetWidth(width)
}

// PointerDown forwards a pointer press to the manual session.
func (w *Workspace) PointerDown(p image.Point) error {
	s, err := w.session()
	if err != nil {
		return err
	}
	s.PointerDown(p)
	return nil
}

// PointerMove forwards a pointer move and reports whether a segment was drawn.
func (w *Workspace) PointerMove(p image.Point) (bool, error) {
	s, err := w.session()
	if err != nil {
		return false, err
	}
	return s.PointerMove(p), nil
}

// PointerUp forwards a pointer release and reports whether a final segment
// was drawn.
func (w *Workspace) PointerUp(p image.Point) (bool, error) {
	s, err := w.session()
	if err != nil {
		return false, err
	}
	return s.PointerUp(p), nil
}

// Stroke draws a whole stroke through points, starting a manual session if
// none is active, and returns the number of segments drawn. A single point
// draws a dot.
func (w *Workspace) Stroke(mode stroke.Mode, width float64, points []image.Point) (int, error) {
	if len(points) == 0 {
		return 0, fmt.Errorf("%w: stroke has no points", imaging.ErrInvalidParameter)
	}

	// Held for the whole stroke so a rebuild cannot discard the session
	// while it is being drawn on.
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.beginManualLocked(); err != nil {
		return 0, err
	}
	s := w.manual

	if err := s.SetMode(mode); err != nil {
		return 0, err
	}
	if width > 0 {
		if err := s.SetWidth(width); err != nil {
			return 0, err
		}
	}

	drawn := 0
	s.PointerDown(points[0])
	if len(points) == 1 {
		if s.PointerMove(points[0]) {
			drawn++
		}
	}
	for _, p := range points[1:] {
		if s.PointerMove(p) {
			drawn++
		}
	}
	if s.PointerUp(points[len(points)-1]) {
		drawn++
	}
	return drawn, nil
}

// Undo removes the last manual segment.
func (w *Workspace) Undo() (bool, error) {
	s, err := w.session()
	if err != nil {
		return false, err
	}
	return s.Undo(), nil
}

// Save writes the current result to path and returns the path written. When
// path has no extension the opened file's suffix is appended. A failed save
// changes nothing.
func (w *Workspace) Save(path string) (string, error) {
	w.mu.Lock()
	img, err := w.resultLocked()
	suffix := w.suffix
	w.mu.Unlock()
	if err != nil {
		return "", err
	}

	if filepath.Ext(path) == "" {
		if suffix == "" {
			suffix = "png"
		}
		path += "." + suffix
	}
	if err := imaging.SaveImage(img, path); err != nil {
		return "", err
	}

	w.logger.Info("result saved", "path", path, "width", img.Rect.Dx(), "height", img.Rect.Dy())
	return path, nil
}

// Quality compares the current result with the source image resized to the
// result's size using the current filter.
func (w *Workspace) Quality() (*imaging.QualityReport, error) {
	w.mu.Lock()
	img, err := w.resultLocked()
	src := w.source
	filter := w.params.Filter
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ref, err := imaging.Resize(src, img.Rect.Dx(), img.Rect.Dy(), filter)
	if err != nil {
		return nil, err
	}
	return imaging.CompareQuality(ref, img)
}

// Status describes the workspace for display.
type Status struct {
	Open         bool   `json:"open"`
	Path         string `json:"path,omitempty"`
	Suffix       string `json:"suffix,omitempty"`
	SourceWidth  int    `json:"source_width,omitempty"`
	SourceHeight int    `json:"source_height,omitempty"`
	ResultWidth  int    `json:"result_width,omitempty"`
	ResultHeight int    `json:"result_height,omitempty"`
	Params
	Background        string `json:"background"`
	Filter            string `json:"filter"`
	PendingBlockSize  bool   `json:"pending_block_size"`
	PendingTargetSize bool   `json:"pending_target_size"`
	Manual            bool   `json:"manual"`
	Strokes           int    `json:"strokes"`
}

// Status returns a snapshot of the workspace state.
func (w *Workspace) Status() Status {
	pendingBlock := w.blockDebounce.Pending()
	pendingSize := w.sizeDebounce.Pending()

	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.params
	st := Status{
		Open:              w.source != nil,
		Path:              w.path,
		Suffix:            w.suffix,
		Params:            p,
		Background:        fmt.Sprintf("#%02X%02X%02X", p.Background.R, p.Background.G, p.Background.B),
		Filter:            p.Filter.String(),
		PendingBlockSize:  pendingBlock,
		PendingTargetSize: pendingSize,
		Manual:            w.manual != nil,
	}
	if w.source != nil {
		st.SourceWidth, st.SourceHeight = w.source.Rect.Dx(), w.source.Rect.Dy()
		st.ResultWidth, st.ResultHeight = w.result.Rect.Dx(), w.result.Rect.Dy()
	}
	if w.manual != nil {
		st.Strokes = len(w.manual.History())
	}
	return st
}
