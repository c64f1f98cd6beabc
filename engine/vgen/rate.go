package vgen

// Rate is a bitset of the stages a VGen may run at: once per frame (compute
// stage), once per vertex (vertex stage), or once per pixel (fragment
// stage). The ordering Frame < Shape < Pixel is load-bearing: it is the
// monotonicity order the compiler enforces along every input edge.
type Rate uint

const (
	// RateNone is an uninitialized sentinel; it is never a valid rate for a
	// built VGen instance and groupVGens treats it as a validation failure.
	RateNone  Rate = 0
	RateFrame Rate = 1 << 0
	RateShape Rate = 1 << 1
	RatePixel Rate = 1 << 2
)

// Supports reports whether bitset s includes rate r.
func (s Rate) Supports(r Rate) bool {
	return s&r != 0
}

// Rank orders rates for the monotonicity check: Frame < Shape < Pixel.
func (r Rate) Rank() int {
	switch r {
	case RateFrame:
		return 0
	case RateShape:
		return 1
	case RatePixel:
		return 2
	default:
		return -1
	}
}

func (r Rate) String() string {
	switch r {
	case RateFrame:
		return "frame"
	case RateShape:
		return "shape"
	case RatePixel:
		return "pixel"
	default:
		return "none"
	}
}

// RateNamed resolves a YAML rate string to a Rate, or RateNone if
// unrecognized.
func RateNamed(name string) Rate {
	switch name {
	case "frame":
		return RateFrame
	case "shape":
		return RateShape
	case "pixel":
		return RatePixel
	default:
		return RateNone
	}
}
