package scratch

// DefaultPromoCode is revealed when a card is mounted without a reward offer.
const DefaultPromoCode = "PARCEL20"

// Settings holds the tunable constants of the scratch mechanic.
// They apply process-wide; a reward offer never overrides them.
type Settings struct {
	Threshold    float64 // unrounded coverage ratio that triggers the reveal
	EraseRadius  int     // pixels erased around each pointer move
	MinHeight    int
	AspectRatio  float64 // height = max(MinHeight, width*AspectRatio)
	SpeckleArea  int     // one speckle per SpeckleArea pixels
	LabelMinPx   int
	LabelMaxPx   int
	LabelDivisor int // label font size = width / LabelDivisor, clamped
	Label        string
}

// DefaultSettings returns the production scratch settings.
func DefaultSettings() Settings {
	return Settings{
		Threshold:    0.60,
		EraseRadius:  15,
		MinHeight:    200,
		AspectRatio:  0.5,
		SpeckleArea:  1000,
		LabelMinPx:   14,
		LabelMaxPx:   24,
		LabelDivisor: 20,
		Label:        "Scratch to reveal your reward!",
	}
}

// Dimensions returns the canvas size for a container of the given width.
// A non-positive width is a degenerate container and yields 0x0.
func Dimensions(containerWidth int, s Settings) (width, height int) {
	if containerWidth <= 0 {
		return 0, 0
	}
	height = int(float64(containerWidth) * s.AspectRatio)
	if height < s.MinHeight {
		height = s.MinHeight
	}
	return containerWidth, height
}

// LabelSize returns the instructional label's font size in pixels.
func LabelSize(width int, s Settings) int {
	if s.LabelDivisor <= 0 {
		return s.LabelMinPx
	}
	size := width / s.LabelDivisor
	if size < s.LabelMinPx {
		return s.LabelMinPx
	}
	if size > s.LabelMaxPx {
		return s.LabelMaxPx
	}
	return size
}
