package morph

import (
	"github.com/tdewolff/parse/v2/strconv"
)

// Parse parses SVG path data into absolute commands. Relative commands are
// resolved against the pen position, H and V receive the missing coordinate,
// and implicit repeats after M become L.
func Parse(d string) ([]Command, error) {
	p := pathParser{data: []byte(d)}
	return p.parse()
}

// MustParse is like Parse but panics on error. Intended for literals.
func MustParse(d string) []Command {
	cmds, err := Parse(d)
	if err != nil {
		panic(err)
	}
	return cmds
}

type pathParser struct {
	data []byte
	pos  int

	cx, cy float64 // pen
	sx, sy float64 // subpath start
	out    []Command
}

func (p *pathParser) parse() ([]Command, error) {
	var letter byte
	for {
		p.skipSeparators()
		if p.pos >= len(p.data) {
			return p.out, nil
		}
		c := p.data[p.pos]
		if isCommandLetter(c) {
			letter = c
			p.pos++
		} else if letter == 0 {
			return nil, &SyntaxError{Offset: p.pos, Msg: "path must start with a command"}
		} else if letter == 'Z' || letter == 'z' {
			return nil, &SyntaxError{Offset: p.pos, Msg: "unexpected number after close"}
		}
		if err := p.command(letter); err != nil {
			return nil, err
		}
		// Subsequent coordinate pairs after a move are implicit line-tos.
		switch letter {
		case 'M':
			letter = 'L'
		case 'm':
			letter = 'l'
		}
	}
}

func (p *pathParser) command(letter byte) error {
	rel := letter >= 'a' && letter <= 'z'
	var ox, oy float64
	if rel {
		ox, oy = p.cx, p.cy
	}
	var nums [7]float64
	read := func(n int) error {
		for i := 0; i < n; i++ {
			v, err := p.number()
			if err != nil {
				return err
			}
			nums[i] = v
		}
		return nil
	}

	var cmd Command
	switch letter | 0x20 {
	case 'm':
		if err := read(2); err != nil {
			return err
		}
		cmd = Command{Kind: MoveTo, X: ox + nums[0], Y: oy + nums[1]}
		p.sx, p.sy = cmd.X, cmd.Y
	case 'l':
		if err := read(2); err != nil {
			return err
		}
		cmd = Command{Kind: LineTo, X: ox + nums[0], Y: oy + nums[1]}
	case 'h':
		if err := read(1); err != nil {
			return err
		}
		cmd = Command{Kind: HLineTo, X: ox + nums[0], Y: p.cy}
	case 'v':
		if err := read(1); err != nil {
			return err
		}
		cmd = Command{Kind: VLineTo, X: p.cx, Y: oy + nums[0]}
	case 'c':
		if err := read(6); err != nil {
			return err
		}
		cmd = Command{Kind: CubicTo,
			X1: ox + nums[0], Y1: oy + nums[1],
			X2: ox + nums[2], Y2: oy + nums[3],
			X: ox + nums[4], Y: oy + nums[5]}
	case 's':
		if err := read(4); err != nil {
			return err
		}
		cmd = Command{Kind: SmoothCubicTo,
			X2: ox + nums[0], Y2: oy + nums[1],
			X: ox + nums[2], Y: oy + nums[3]}
	case 'q':
		if err := read(4); err != nil {
			return err
		}
		cmd = Command{Kind: QuadTo,
			X1: ox + nums[0], Y1: oy + nums[1],
			X: ox + nums[2], Y: oy + nums[3]}
	case 't':
		if err := read(2); err != nil {
			return err
		}
		cmd = Command{Kind: SmoothQuadTo, X: ox + nums[0], Y: oy + nums[1]}
	case 'a':
		if err := read(3); err != nil {
			return err
		}
		large, err := p.flag()
		if err != nil {
			return err
		}
		sweep, err := p.flag()
		if err != nil {
			return err
		}
		x, err := p.number()
		if err != nil {
			return err
		}
		y, err := p.number()
		if err != nil {
			return err
		}
		cmd = Command{Kind: ArcTo,
			RX: nums[0], RY: nums[1], XAxisRotation: nums[2],
			LargeArc: large, Sweep: sweep,
			X: ox + x, Y: oy + y}
	case 'z':
		cmd = Command{Kind: ClosePath, X: p.sx, Y: p.sy}
	}
	p.cx, p.cy = cmd.X, cmd.Y
	p.out = append(p.out, cmd)
	return nil
}

func (p *pathParser) number() (float64, error) {
	p.skipSeparators()
	if p.pos >= len(p.data) {
		return 0, &SyntaxError{Offset: p.pos, Msg: "expected number, got end of data"}
	}
	v, n := strconv.ParseFloat(p.data[p.pos:])
	if n == 0 {
		return 0, &SyntaxError{Offset: p.pos, Msg: "expected number"}
	}
	p.pos += n
	return v, nil
}

// flag reads a single arc flag. Flags may be packed without separators.
func (p *pathParser) flag() (float64, error) {
	p.skipSeparators()
	if p.pos >= len(p.data) {
		return 0, &SyntaxError{Offset: p.pos, Msg: "expected arc flag, got end of data"}
	}
	switch p.data[p.pos] {
	case '0':
		p.pos++
		return 0, nil
	case '1':
		p.pos++
		return 1, nil
	}
	return 0, &SyntaxError{Offset: p.pos, Msg: "arc flag must be 0 or 1"}
}

func (p *pathParser) skipSeparators() {
	for p.pos < len(p.data) {
		switch p.data[p.pos] {
		case ' ', '\t', '\n', '\r', '\f', ',':
			p.pos++
		default:
			return
		}
	}
}

func isCommandLetter(c byte) bool {
	switch c | 0x20 {
	case 'm', 'l', 'h', 'v', 'c', 's', 'q', 't', 'a', 'z':
		return true
	}
	return false
}
