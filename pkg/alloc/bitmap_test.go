package alloc

import "testing"

func TestBitmapFirstFit(t *testing.T) {
	bm := New(8)
	bm.Set(2)
	bm.Set(5)
	if i, ok := bm.FindFirstFree(); !ok || i != 0 {
		t.Fatalf("FindFirstFree(): wanted `(0, true)`; found `(%d, %t)`", i, ok)
	}

	for i := uint64(0); i < 8; i++ {
		bm.Set(i)
	}
	if i, ok := bm.FindFirstFree(); ok {
		t.Fatalf("FindFirstFree(): wanted `(_, false)`; found `(%d, true)`", i)
	}
	if !bm.IsFull() {
		t.Fatal("IsFull(): wanted `true`; found `false`")
	}
}

func TestBitmapIgnoresPaddingBits(t *testing.T) {
	// 10 bits occupy two bytes; the six padding bits in the second byte must
	// never be handed out.
	bm := New(10)
	for i := uint64(0); i < 10; i++ {
		bm.Set(i)
	}
	if !bm.IsFull() {
		t.Fatalf("IsFull(): wanted `true`; found `false` (bytes `%#x`)", bm.Bytes())
	}
	if n := bm.CountSet(); n != 10 {
		t.Fatalf("CountSet(): wanted `10`; found `%d`", n)
	}
}

func TestCountSetMasksTail(t *testing.T) {
	for _, testCase := range []struct {
		count  uint64
		raw    []byte
		wanted uint64
	}{
		{count: 10, raw: []byte{0xff, 0xff}, wanted: 10},
		{count: 16, raw: []byte{0x0f, 0xf0}, wanted: 8},
		{count: 20, raw: []byte{0x01, 0x80, 0xfa}, wanted: 4},
		{count: 3, raw: []byte{0x00}, wanted: 0},
	} {
		bm := Bitmap{count: testCase.count, bytes: testCase.raw}
		if found := bm.CountSet(); found != testCase.wanted {
			t.Fatalf(
				"CountSet() of `%d` bits `%#x`: wanted `%d`; found `%d`",
				testCase.count,
				testCase.raw,
				testCase.wanted,
				found,
			)
		}
	}
}

func TestBitmapAllocIsSequential(t *testing.T) {
	bm := New(20)
	for wanted := uint64(0); wanted < 20; wanted++ {
		found, ok := bm.Alloc()
		if !ok || found != wanted {
			t.Fatalf(
				"Alloc(): wanted `(%d, true)`; found `(%d, %t)`",
				wanted,
				found,
				ok,
			)
		}
	}
	if _, ok := bm.Alloc(); ok {
		t.Fatal("Alloc(): wanted exhaustion after 20 allocations")
	}

	bm.Free(7)
	if found, ok := bm.Alloc(); !ok || found != 7 {
		t.Fatalf("Alloc(): wanted `(7, true)`; found `(%d, %t)`", found, ok)
	}
}

func TestBitmapLSBFirstPacking(t *testing.T) {
	bm := New(16)
	bm.Set(0)
	bm.Set(9)
	if b := bm.Bytes(); b[0] != 0x01 || b[1] != 0x02 {
		t.Fatalf("Bytes(): wanted `0x0102`; found `%#x`", b)
	}
}

func TestBitmapSetOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Set(8): wanted panic for 8-bit bitmap")
		}
	}()
	New(8).Set(8)
}

func TestFromBytesMasksPadding(t *testing.T) {
	bm := FromBytes(12, []byte{0xff, 0xff, 0xff})
	if len(bm.Bytes()) != 2 {
		t.Fatalf("len(Bytes()): wanted `2`; found `%d`", len(bm.Bytes()))
	}
	if bm.Bytes()[1] != 0x0f {
		t.Fatalf("Bytes()[1]: wanted `0x0f`; found `%#x`", bm.Bytes()[1])
	}
	if n := bm.CountSet(); n != 12 {
		t.Fatalf("CountSet(): wanted `12`; found `%d`", n)
	}
}
