package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// Matrix is a dense feature matrix that keeps its column names.
type Matrix struct {
	Columns []string
	Rows    [][]float64
}

// Split holds the train/test partitions and their source row indices.
type Split struct {
	TrainX     Matrix
	TrainY     []string
	TestX      Matrix
	TestY      []string
	TrainIndex []int
	TestIndex  []int
}

// splitDataset shuffles row indices with a seeded permutation and puts the
// first ceil(testSize*n) of them in the test partition.
func splitDataset(x Matrix, y []string, testSize float64, seed int64) (*Split, error) {
	n := len(x.Rows)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty feature matrix", ErrInvalidInput)
	}
	if len(y) != n {
		return nil, fmt.Errorf("%w: %d rows but %d labels", ErrInvalidInput, n, len(y))
	}
	if !(testSize > 0 && testSize < 1) {
		return nil, fmt.Errorf("%w: test size %v must be in (0, 1)", ErrInvalidInput, testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest == 0 || nTrain == 0 {
		return nil, fmt.Errorf("%w: %d rows cannot be split with test size %v", ErrInvalidInput, n, testSize)
	}

	rnd := rand.New(rand.NewSource(seed))
	perm := rnd.Perm(n)

	s := &Split{
		TrainX:     Matrix{Columns: x.Columns, Rows: make([][]float64, 0, nTrain)},
		TrainY:     make([]string, 0, nTrain),
		TestX:      Matrix{Columns: x.Columns, Rows: make([][]float64, 0, nTest)},
		TestY:      make([]string, 0, nTest),
		TrainIndex: make([]int, 0, nTrain),
		TestIndex:  make([]int, 0, nTest),
	}
	for i, idx := range perm {
		if i < nTest {
			s.TestX.Rows = append(s.TestX.Rows, x.Rows[idx])
			s.TestY = append(s.TestY, y[idx])
			s.TestIndex = append(s.TestIndex, idx)
		} else {
			s.TrainX.Rows = append(s.TrainX.Rows, x.Rows[idx])
			s.TrainY = append(s.TrainY, y[idx])
			s.TrainIndex = append(s.TrainIndex, idx)
		}
	}
	return s, nil
}
