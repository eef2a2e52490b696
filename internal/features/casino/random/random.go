// Package random — источник случайности для игровых движков.
// Движки получают Source снаружи, поэтому в тестах исход раунда задаётся явно.
package random

import (
	"math/rand"
	"sync"
)

// Source выдаёт равномерно распределённое целое в [0, n).
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.Intn(n) }

// Default возвращает потокобезопасный источник на math/rand.
func Default() Source { return globalSource{} }

// Sequence: детерминированный источник: отдаёт заданные значения по кругу.
// Каждое значение берётся по модулю n.
type Sequence struct {
	mu     sync.Mutex
	values []int
	pos    int
}

// NewSequence создаёт детерминированный источник.
func NewSequence(values ...int) *Sequence {
	return &Sequence{values: values}
}

// IntN реализует Source.
func (s *Sequence) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 || n <= 0 {
		return 0
	}
	v := s.values[s.pos%len(s.values)]
	s.pos++
	if v < 0 {
		v = -v
	}
	return v % n
}
