package prediction

import "math/rand"

// TrainTestSplit returns index sets for a shuffled holdout split. The same
// (n, testFraction, seed) triple always yields the same split, which makes
// repeated evaluation runs on identical input byte-for-byte reproducible.
func TrainTestSplit(n int, testFraction float64, seed int64) (train, test []int) {
	if n <= 0 {
		return nil, nil
	}
	if testFraction < 0 {
		testFraction = 0
	}
	if testFraction > 1 {
		testFraction = 1
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(float64(n) * testFraction)
	if nTest == 0 && testFraction > 0 && n > 1 {
		nTest = 1
	}

	test = append(test, perm[:nTest]...)
	train = append(train, perm[nTest:]...)
	return train, test
}

// take selects rows of a matrix by index.
func take(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}

// takeVec selects elements of a vector by index.
func takeVec(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
