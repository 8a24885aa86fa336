package math

import "testing"

func TestDivRoundUp(t *testing.T) {
	for _, testCase := range []struct {
		a, b, wanted int
	}{
		{0, 8, 0},
		{1, 8, 1},
		{8, 8, 1},
		{9, 8, 2},
		{2560, 8, 320},
	} {
		if found := DivRoundUp(testCase.a, testCase.b); found != testCase.wanted {
			t.Fatalf(
				"DivRoundUp(%d, %d): wanted `%d`; found `%d`",
				testCase.a,
				testCase.b,
				testCase.wanted,
				found,
			)
		}
	}
}

func TestLog2(t *testing.T) {
	for _, testCase := range []struct {
		input  int64
		wanted uint8
	}{{1, 0}, {2, 1}, {256, 8}, {4096, 12}, {4097, 12}} {
		if found := Log2(testCase.input); found != testCase.wanted {
			t.Fatalf(
				"Log2(%d): wanted `%d`; found `%d`",
				testCase.input,
				testCase.wanted,
				found,
			)
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for input, wanted := range map[int]bool{
		0: false, 1: true, 3: false, 512: true, 4095: false, 4096: true,
	} {
		if found := IsPowerOfTwo(input); found != wanted {
			t.Fatalf(
				"IsPowerOfTwo(%d): wanted `%t`; found `%t`",
				input,
				wanted,
				found,
			)
		}
	}
}
