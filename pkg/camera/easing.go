package camera

// Easing shapes the progress of a focus animation
type Easing string

const (
	EasingLinear     Easing = "linear"
	EasingCubicInOut Easing = "cubic-in-out"
)

// Ease maps linear progress t in [0, 1] to eased progress
func (e Easing) Ease(t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 1
	}

	switch e {
	case EasingCubicInOut:
		if t < 0.5 {
			return 4 * t * t * t
		}
		u := 2*t - 2
		return 1 + u*u*u/2
	default:
		return t
	}
}
