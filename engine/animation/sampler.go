// Package animation holds the animation and skinning data of scene nodes.
package animation

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima-prefab/engine/assets"
	"github.com/spaghettifunk/anima-prefab/engine/math"
)

var ErrEmptySampler = errors.New("sampler has no keyframes")
var ErrUnsortedInput = errors.New("sampler input is not strictly increasing")
var ErrOutputMismatch = errors.New("sampler output does not match its input")

/** @brief The transform property a sampler drives. */
type Channel int

const (
	ChannelTranslation Channel = iota
	ChannelRotation
	ChannelScale
)

func (c Channel) String() string {
	switch c {
	case ChannelTranslation:
		return "translation"
	case ChannelRotation:
		return "rotation"
	case ChannelScale:
		return "scale"
	default:
		return "unknown"
	}
}

type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	// Every keyframe holds an in-tangent, a value and an out-tangent, in that order.
	InterpolationCubicSpline
)

/**
 * @brief Keyframes of one channel. Vec3 channels leave W unused.
 */
type Sampler struct {
	/** @brief Keyframe times in seconds. */
	Input []float32
	/** @brief Keyframe values. */
	Output        []math.Vec4
	Channel       Channel
	Interpolation Interpolation
}

// Validate checks the keyframes against the interpolation.
func (s *Sampler) Validate() error {
	if len(s.Input) == 0 {
		return ErrEmptySampler
	}
	for i := 1; i < len(s.Input); i++ {
		if s.Input[i] <= s.Input[i-1] {
			return fmt.Errorf("%w: keyframe %d", ErrUnsortedInput, i)
		}
	}
	want := len(s.Input)
	if s.Interpolation == InterpolationCubicSpline {
		want *= 3
	}
	if len(s.Output) != want {
		return fmt.Errorf("%w: %d outputs for %d keyframes", ErrOutputMismatch, len(s.Output), len(s.Input))
	}
	return nil
}

// Duration is the time of the last keyframe.
func (s *Sampler) Duration() float32 {
	if len(s.Input) == 0 {
		return 0
	}
	return s.Input[len(s.Input)-1]
}

/**
 * @brief Evaluates the sampler at time t, clamped to the keyframe range.
 * Cubic splines are evaluated with the Hermite basis.
 */
func (s *Sampler) Sample(t float32) math.Vec4 {
	n := len(s.Input)
	if n == 0 {
		return math.Vec4{}
	}
	value := func(i int) math.Vec4 {
		if s.Interpolation == InterpolationCubicSpline {
			return s.Output[i*3+1]
		}
		return s.Output[i]
	}
	if t <= s.Input[0] {
		return value(0)
	}
	if t >= s.Input[n-1] {
		return value(n - 1)
	}

	next := 1
	for s.Input[next] < t {
		next++
	}
	prev := next - 1
	dt := s.Input[next] - s.Input[prev]
	f := (t - s.Input[prev]) / dt

	switch s.Interpolation {
	case InterpolationStep:
		return value(prev)
	case InterpolationCubicSpline:
		p0, m0 := value(prev), scale4(s.Output[prev*3+2], dt)
		p1, m1 := value(next), scale4(s.Output[next*3], dt)
		f2, f3 := f*f, f*f*f
		return add4(
			add4(scale4(p0, 2*f3-3*f2+1), scale4(m0, f3-2*f2+f)),
			add4(scale4(p1, -2*f3+3*f2), scale4(m1, f3-f2)),
		)
	default:
		a, b := value(prev), value(next)
		return add4(scale4(a, 1-f), scale4(b, f))
	}
}

func scale4(v math.Vec4, s float32) math.Vec4 {
	return math.Vec4{X: v.X * s, Y: v.Y * s, Z: v.Z * s, W: v.W * s}
}

func add4(a, b math.Vec4) math.Vec4 {
	return math.Vec4{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z, W: a.W + b.W}
}

type SamplerHandle = assets.Handle[*Sampler]

type SamplerStorage = assets.Storage[*Sampler, *Sampler]

/**
 * @brief A sampler waiting to be registered, or the handle of a registered one.
 */
type SamplerPrefab struct {
	Sampler *Sampler
	handle  SamplerHandle
}

func NewSamplerPrefab(s *Sampler) *SamplerPrefab {
	return &SamplerPrefab{Sampler: s}
}

func (p *SamplerPrefab) LoadSubAssets(progress *assets.ProgressCounter, data AnimationSystemData) (bool, error) {
	if p.handle.IsValid() {
		return false, nil
	}
	if p.Sampler == nil {
		return false, ErrEmptySampler
	}
	if err := p.Sampler.Validate(); err != nil {
		return false, err
	}
	p.handle = assets.LoadFromData(data.Loader, p.Sampler, progress, data.Samplers)
	return true, nil
}

func (p *SamplerPrefab) Handle() SamplerHandle {
	return p.handle
}
