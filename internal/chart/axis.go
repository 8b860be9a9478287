package chart

// AxisTicks is the number of intervals on each axis; tick labels run from
// Max down to 0.
const AxisTicks = 5

// likesStepUnit is the granularity (and minimum) of the likes axis step.
const likesStepUnit = 10

// Axis is a linear value axis starting at zero.
type Axis struct {
	Step  int   `json:"step"`
	Max   int   `json:"max"`
	Ticks []int `json:"ticks"`
}

// ceilDiv returns ceil(a/b) for non-negative a and positive b.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func newAxis(step int) Axis {
	a := Axis{Step: step, Max: step * AxisTicks, Ticks: make([]int, 0, AxisTicks+1)}
	for i := AxisTicks; i >= 0; i-- {
		a.Ticks = append(a.Ticks, i*step)
	}
	return a
}

// CountAxis scales the post-count axis: step = max(1, ceil(max/5)).
// observedMax is floored to 1 so an all-zero series still has an axis.
func CountAxis(observedMax int) Axis {
	observedMax = max(observedMax, 1)
	return newAxis(max(1, ceilDiv(observedMax, AxisTicks)))
}

// LikesAxis scales the likes axis: ceil(max/5) rounded up to a multiple of
// 10, never below 10.
func LikesAxis(observedMax int) Axis {
	observedMax = max(observedMax, 0)
	raw := ceilDiv(observedMax, AxisTicks)
	step := ceilDiv(raw, likesStepUnit) * likesStepUnit
	return newAxis(max(likesStepUnit, step))
}

// Percent returns v as a percentage of the axis maximum.
func (a Axis) Percent(v int) float64 {
	if a.Max <= 0 {
		return 0
	}
	return float64(v) / float64(a.Max) * 100
}
