package chart

// Normalize expresses a series as percentage change from its first present value:
// (v/base - 1) * 100. A zero base is treated as 1 so degenerate inputs still chart the same
// way they always have. Absent values stay absent and the input is left untouched.
func Normalize(s *Series) *Series {
	out := &Series{label: s.Label(), points: make([]Point, s.Len())}
	base, ok := s.FirstValue().Get()
	if !ok {
		copy(out.points, s.Points())
		return out
	}
	if base == 0 {
		base = 1
	}
	for i := 0; i < s.Len(); i++ {
		p := s.at(i)
		if v, ok := p.Value.Get(); ok {
			p.Value = Some((v/base - 1) * 100)
		}
		out.points[i] = p
	}
	return out
}
