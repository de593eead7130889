package stroke

import (
	"fmt"
	"image"
	"sync"

	"github.com/ironsheep/pixelart/internal/imaging"
)

// Session applies pointer-driven brush strokes to a working image.
//
// Pointer events follow Idle → Drawing → Idle: PointerDown starts drawing,
// every PointerMove draws one Segment from the previous point, and PointerUp
// returns to Idle. While the mode is ModeNone nothing is drawn.
type Session struct {
	mu sync.Mutex

	working  *image.NRGBA
	base     *image.NRGBA
	original image.Image

	mode    Mode
	width   float64
	drawing bool
	last    image.Point
	history []Segment

	// strokeStart is the index in history of the first segment of the
	// stroke in progress.
	strokeStart int
}

// NewSession starts a session that strokes working in place. original supplies
// the pixels ModeErase restores and must have the same size as working.
//
// The session takes ownership of working; callers read it through Snapshot.
// Undo replays the history over a copy of working taken here.
func NewSession(working *image.NRGBA, original image.Image) (*Session, error) {
	if working == nil || working.Rect.Empty() {
		return nil, fmt.Errorf("%w: working image is empty", imaging.ErrInvalidParameter)
	}
	if original == nil {
		return nil, fmt.Errorf("%w: original image is nil", imaging.ErrInvalidParameter)
	}
	if ob := original.Bounds(); ob.Dx() != working.Rect.Dx() || ob.Dy() != working.Rect.Dy() {
		return nil, fmt.Errorf("%w: working is %dx%d, original is %dx%d", imaging.ErrDimensionMismatch,
			working.Rect.Dx(), working.Rect.Dy(), ob.Dx(), ob.Dy())
	}

	return &Session{
		working:  working,
		base:     imaging.ToNRGBA(working),
		original: original,
		mode:     ModeNone,
		width:    DefaultWidth,
	}, nil
}

// SetMode selects the brush mode for the following segments. Changing the mode
// mid-stroke is allowed.
func (s *Session) SetMode(m Mode) error {
	if _, ok := modeNames[m]; !ok {
		return fmt.Errorf("%w: unknown stroke mode %d", imaging.ErrInvalidParameter, int(m))
	}
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
	return nil
}

// Mode returns the current brush mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetWidth sets the brush diameter in pixels for the following segments.
func (s *Session) SetWidth(w float64) error {
	if !(w > 0) {
		return fmt.Errorf("%w: brush width must be positive, got %g", imaging.ErrInvalidParameter, w)
	}
	s.mu.Lock()
	s.width = w
	s.mu.Unlock()
	return nil
}

// Drawing reports whether a stroke is in progress.
func (s *Session) Drawing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawing
}

// PointerDown begins a stroke at p. It is ignored while the mode is ModeNone.
func (s *Session) PointerDown(p image.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeNone {
		return
	}
	s.drawing = true
	s.last = p
	s.strokeStart = len(s.history)
}

// PointerMove draws a segment from the previous point to p and reports
// whether it drew anything.
func (s *Session) PointerMove(p image.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(p)
}

// PointerUp ends the stroke, first drawing to p if the pointer moved since the
// last event. It reports whether a final segment was drawn.
func (s *Session) PointerUp(p image.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.drawing {
		return false
	}
	drawn := false
	if p != s.last {
		drawn = s.moveLocked(p)
	}
	s.drawing = false
	return drawn
}

func (s *Session) moveLocked(p image.Point) bool {
	if !s.drawing {
		return false
	}
	if s.mode == ModeNone {
		// The pointer still moves; drawing resumes from here.
		s.last = p
		return false
	}
	seg := Segment{From: s.last, To: p, Width: s.width, Mode: s.mode}
	Apply(s.working, s.original, seg)
	s.history = append(s.history, seg)
	s.last = p
	return true
}

// History returns a copy of the segments drawn so far, oldest first.
func (s *Session) History() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Segment(nil), s.history...)
}

// Snapshot returns a deep copy of the working image.
func (s *Session) Snapshot() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return imaging.ToNRGBA(s.working)
}

// Undo removes the most recent segment and redraws the working image from the
// session's starting image. It reports false when there is nothing to undo.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return false
	}
	n := len(s.history) - 1
	removed := s.history[n]
	s.history = s.history[:n]
	restore(s.working, s.base)
	for _, seg := range s.history {
		Apply(s.working, s.original, seg)
	}
	if s.drawing {
		if n >= s.strokeStart {
			// The drag continues from where the removed segment began.
			s.last = removed.From
		} else {
			s.strokeStart = n
		}
	}
	return true
}

// restore copies base, a 0-based clone, back over working.
func restore(working, base *image.NRGBA) {
	rowBytes := 4 * working.Rect.Dx()
	for y := 0; y < working.Rect.Dy(); y++ {
		wi := working.PixOffset(working.Rect.Min.X, working.Rect.Min.Y+y)
		bi := base.PixOffset(0, y)
		copy(working.Pix[wi:wi+rowBytes], base.Pix[bi:bi+rowBytes])
	}
}
