package prediction

import "testing"

func TestTrainTestSplitSizes(t *testing.T) {
	train, test := TrainTestSplit(10, 0.2, 42)
	if len(test) != 2 || len(train) != 8 {
		t.Fatalf("expected 8/2 split, got %d/%d", len(train), len(test))
	}

	seen := make(map[int]bool, 10)
	for _, i := range append(append([]int{}, train...), test...) {
		if seen[i] {
			t.Fatalf("index %d assigned twice", i)
		}
		seen[i] = true
	}
	if len(seen) != 10 {
		t.Fatalf("split lost indices: covered %d of 10", len(seen))
	}
}

func TestTrainTestSplitReproducible(t *testing.T) {
	train1, test1 := TrainTestSplit(50, 0.3, 7)
	train2, test2 := TrainTestSplit(50, 0.3, 7)
	for i := range train1 {
		if train1[i] != train2[i] {
			t.Fatalf("train split differs at %d for identical seed", i)
		}
	}
	for i := range test1 {
		if test1[i] != test2[i] {
			t.Fatalf("test split differs at %d for identical seed", i)
		}
	}
}

func TestTrainTestSplitSmallN(t *testing.T) {
	train, test := TrainTestSplit(3, 0.1, 1)
	if len(test) != 1 {
		t.Fatalf("positive fraction on n>1 must hold out at least one row, got %d", len(test))
	}
	if len(train) != 2 {
		t.Fatalf("expected 2 train rows, got %d", len(train))
	}

	train, test = TrainTestSplit(0, 0.2, 1)
	if train != nil || test != nil {
		t.Fatalf("n=0 must return nil splits, got %v / %v", train, test)
	}
}

func TestTrainTestSplitFractionClamped(t *testing.T) {
	train, test := TrainTestSplit(5, 1.5, 1)
	if len(train) != 0 || len(test) != 5 {
		t.Fatalf("fraction above 1 clamps to all-test, got %d/%d", len(train), len(test))
	}

	train, test = TrainTestSplit(5, -0.5, 1)
	if len(train) != 5 || len(test) != 0 {
		t.Fatalf("negative fraction clamps to all-train, got %d/%d", len(train), len(test))
	}
}
