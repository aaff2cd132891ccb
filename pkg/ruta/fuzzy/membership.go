package fuzzy

import "math"

// Membership maps a crisp value to a degree in [0,1].
type Membership func(x float64) float64

// Tri is a triangular membership function with feet a, c and peak b.
// a == b or b == c give a vertical shoulder.
func Tri(a, b, c float64) Membership {
	return func(x float64) float64 {
		switch {
		case x < a || x > c:
			return 0
		case x == b:
			return 1
		case x < b:
			if b == a {
				return 1
			}
			return (x - a) / (b - a)
		default:
			if c == b {
				return 1
			}
			return (c - x) / (c - b)
		}
	}
}

// Trap is a trapezoidal membership function with plateau [b, c].
func Trap(a, b, c, d float64) Membership {
	return func(x float64) float64 {
		switch {
		case x < a || x > d:
			return 0
		case x >= b && x <= c:
			return 1
		case x < b:
			return (x - a) / (b - a)
		default:
			return (d - x) / (d - c)
		}
	}
}

// Gauss is a gaussian membership function.
func Gauss(mean, sigma float64) Membership {
	return func(x float64) float64 {
		d := x - mean
		return math.Exp(-(d * d) / (2 * sigma * sigma))
	}
}

// Very concentrates a set (hedge "very").
func Very(m Membership) Membership {
	return func(x float64) float64 {
		v := m(x)
		return v * v
	}
}

// MoreOrLess dilates a set (hedge "more or less").
func MoreOrLess(m Membership) Membership {
	return func(x float64) float64 {
		return math.Sqrt(m(x))
	}
}

// sampled is a membership function evaluated on the integer points of
// [0, len-1] and read back by linear interpolation.
type sampled []float64

func sample(m Membership, hi float64) sampled {
	s := make(sampled, int(hi)+1)
	for i := range s {
		s[i] = m(float64(i))
	}
	return s
}

func (s sampled) at(x float64) float64 {
	last := len(s) - 1
	switch {
	case x <= 0:
		return s[0]
	case x >= float64(last):
		return s[last]
	}
	i := int(x)
	return s[i] + (x-float64(i))*(s[i+1]-s[i])
}
