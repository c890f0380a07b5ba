package logger

import (
	"strconv"
	"strings"
	"sync"
)

// ratioSampler lets num out of every den events through: the first num of each window pass.
type ratioSampler struct {
	mu       sync.Mutex
	num, den int
	seen     int
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

// Set replaces the ratio and restarts the window. A non-positive part turns sampling off.
func (s *ratioSampler) Set(num, den int) {
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	s.mu.Lock()
	s.num, s.den, s.seen = min(num, den), den, 0
	s.mu.Unlock()
}

// Allow reports whether the next event passes. Everything passes while sampling is off.
func (s *ratioSampler) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.den == 0 {
		return true
	}
	pass := s.seen < s.num
	s.seen = (s.seen + 1) % s.den
	return pass
}

// parseRatioSpec reads "n/d", or "d" as shorthand for 1/d. Garbage yields 0, 0.
func parseRatioSpec(spec string) (num, den int) {
	head, tail, ratio := strings.Cut(strings.TrimSpace(spec), "/")
	if !ratio {
		d, err := strconv.Atoi(head)
		if err != nil || d <= 0 {
			return 0, 0
		}
		return 1, d
	}
	n, errNum := strconv.Atoi(strings.TrimSpace(head))
	d, errDen := strconv.Atoi(strings.TrimSpace(tail))
	if errNum != nil || errDen != nil {
		return 0, 0
	}
	return n, d
}
