// Package intrinsic holds the closed set of symbolic names for built-in
// shader inputs that VGen templates may reference with an @name placeholder.
package intrinsic

// Intrinsic is a closed enumeration of built-in VGen template references.
type Intrinsic int

const (
	FragCoord Intrinsic = iota
	NormPos
	Pi
	Position
	Sampler
	Time
	TexPos
	TweenDuration
	TweenSampler
	// NotFound is returned by Named when the given name isn't an intrinsic.
	NotFound
)

var names = map[string]Intrinsic{
	"fragCoord":     FragCoord,
	"normPos":       NormPos,
	"pi":            Pi,
	"position":      Position,
	"sampler":       Sampler,
	"time":          Time,
	"texPos":        TexPos,
	"tweenDuration": TweenDuration,
	"tweenSampler":  TweenSampler,
}

// Named resolves a string tag (without the leading @) to its Intrinsic, or
// NotFound if name isn't a recognized intrinsic.
func Named(name string) Intrinsic {
	if i, ok := names[name]; ok {
		return i
	}
	return NotFound
}

func (i Intrinsic) String() string {
	for name, v := range names {
		if v == i {
			return name
		}
	}
	return "notFound"
}

// IsReserved reports whether name collides with an intrinsic tag, and so
// cannot be used as a VGen input, output, or parameter name.
func IsReserved(name string) bool {
	_, ok := names[name]
	return ok
}
