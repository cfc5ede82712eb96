package crypto

// Isaac implements the ISAAC stream cipher used by the revision-225 game
// protocol to mask opcode bytes in both directions.
//
// Each seated connection owns exactly two instances: the inbound cipher is
// keyed with the four seed words from the client's login block, the outbound
// cipher with the same words plus 50 each. Keystream advancement must stay in
// lock-step with the peer: exactly one Next() call per opcode byte written
// and per opcode byte consumed while encryption is active.
type Isaac struct {
	rsl   [256]uint32
	mem   [256]uint32
	a     uint32
	b     uint32
	c     uint32
	count int
}

// NewIsaac creates a cipher seeded from four 32-bit words.
func NewIsaac(seed [4]uint32) *Isaac {
	is := &Isaac{}
	copy(is.rsl[:], seed[:])
	is.init()
	return is
}

// Next returns the next 32-bit keystream word.
// Side-effectful: must not be invoked speculatively (see PacketCodec).
func (is *Isaac) Next() uint32 {
	if is.count == 0 {
		is.generate()
		is.count = 256
	}
	is.count--
	return is.rsl[is.count]
}

// init mixes the seed words into the internal state (standard ISAAC key
// schedule: golden-ratio init followed by two seeding passes).
func (is *Isaac) init() {
	var a, b, c, d, e, f, g, h uint32
	a, b, c, d = 0x9e3779b9, 0x9e3779b9, 0x9e3779b9, 0x9e3779b9
	e, f, g, h = 0x9e3779b9, 0x9e3779b9, 0x9e3779b9, 0x9e3779b9

	for i := 0; i < 4; i++ {
		a, b, c, d, e, f, g, h = mix(a, b, c, d, e, f, g, h)
	}

	for i := 0; i < 256; i += 8 {
		a += is.rsl[i]
		b += is.rsl[i+1]
		c += is.rsl[i+2]
		d += is.rsl[i+3]
		e += is.rsl[i+4]
		f += is.rsl[i+5]
		g += is.rsl[i+6]
		h += is.rsl[i+7]
		a, b, c, d, e, f, g, h = mix(a, b, c, d, e, f, g, h)
		is.mem[i] = a
		is.mem[i+1] = b
		is.mem[i+2] = c
		is.mem[i+3] = d
		is.mem[i+4] = e
		is.mem[i+5] = f
		is.mem[i+6] = g
		is.mem[i+7] = h
	}

	// Second pass folds the partially mixed state back into itself.
	for i := 0; i < 256; i += 8 {
		a += is.mem[i]
		b += is.mem[i+1]
		c += is.mem[i+2]
		d += is.mem[i+3]
		e += is.mem[i+4]
		f += is.mem[i+5]
		g += is.mem[i+6]
		h += is.mem[i+7]
		a, b, c, d, e, f, g, h = mix(a, b, c, d, e, f, g, h)
		is.mem[i] = a
		is.mem[i+1] = b
		is.mem[i+2] = c
		is.mem[i+3] = d
		is.mem[i+4] = e
		is.mem[i+5] = f
		is.mem[i+6] = g
		is.mem[i+7] = h
	}

	is.generate()
	is.count = 256
}

// generate refills rsl with the next 256 keystream words.
func (is *Isaac) generate() {
	is.c++
	is.b += is.c

	for i := 0; i < 256; i++ {
		x := is.mem[i]
		switch i & 3 {
		case 0:
			is.a ^= is.a << 13
		case 1:
			is.a ^= is.a >> 6
		case 2:
			is.a ^= is.a << 2
		case 3:
			is.a ^= is.a >> 16
		}
		is.a += is.mem[(i+128)&0xFF]
		y := is.mem[(x>>2)&0xFF] + is.a + is.b
		is.mem[i] = y
		is.b = is.mem[(y>>10)&0xFF] + x
		is.rsl[i] = is.b
	}
}

func mix(a, b, c, d, e, f, g, h uint32) (uint32, uint32, uint32, uint32, uint32, uint32, uint32, uint32) {
	a ^= b << 11
	d += a
	b += c
	b ^= c >> 2
	e += b
	c += d
	c ^= d << 8
	f += c
	d += e
	d ^= e >> 16
	g += d
	e += f
	e ^= f << 10
	h += e
	f += g
	f ^= g >> 4
	a += f
	g += h
	g ^= h << 8
	b += g
	h += a
	h ^= a >> 9
	c += h
	a += b
	return a, b, c, d, e, f, g, h
}
