package input

// quadrature is indexed by previous<<2 | current, each a 2 bit A<<1|B
// gray code. Invalid (skipped) transitions count as 0.
var quadrature = [16]int{0, 1, -1, 0, -1, 0, 0, 1, 1, 0, 0, -1, 0, -1, 1, 0}

// Decoder turns A/B samples into detent steps.
type Decoder struct {
	PerDetent int

	state  uint8
	primed bool
	acc    int
}

// Update takes the current pin levels and returns whole detents moved,
// positive clockwise.
func (d *Decoder) Update(a, b bool) int {
	cur := level(a)<<1 | level(b)
	if !d.primed {
		d.state, d.primed = cur, true
		return 0
	}
	if cur == d.state {
		return 0
	}
	d.acc += quadrature[d.state<<2|cur]
	d.state = cur

	per := d.PerDetent
	if per <= 0 {
		per = 1
	}
	steps := d.acc / per
	d.acc -= steps * per
	return steps
}

func level(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

// Press is what a button release amounts to.
type Press int

const (
	NoPress Press = iota
	ShortPress
	LongPress
)

// Button counts how many polls a button stays down. On release it reports
// a press when it was held longer than Width polls, a long one when held
// Long polls or more.
type Button struct {
	Width int
	Long  int

	down bool
	hold int
}

func (b *Button) Update(pressed bool) Press {
	switch {
	case pressed && !b.down:
		b.down, b.hold = true, 0
	case pressed:
		b.hold++
	case b.down:
		hold := b.hold
		b.down, b.hold = false, 0
		switch {
		case b.Long > 0 && hold >= b.Long:
			return LongPress
		case hold > b.Width:
			return ShortPress
		}
	}
	return NoPress
}
