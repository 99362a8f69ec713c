package common

import (
	"math/rand"
	"testing"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		data []byte
		want uint16
	}{
		{nil, 0xffff},
		{[]byte{0x01}, 0xfeff},
		{[]byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7}, 0x220d},
		{[]byte{0xff, 0xff, 0xff, 0xff}, 0x0000},
		{[]byte("uff"), 0x2499},
	}

	for _, test := range tests {
		if got := Checksum(test.data); got != test.want {
			t.Errorf("Checksum(%x): expected %#04x, got %#04x", test.data, test.want, got)
		}
	}
}

func TestChecksumIdempotent(t *testing.T) {
	rnd := rand.New(rand.NewSource(23))

	for _, size := range []int{0, 1, 2, 3, 511, 1024, 1025} {
		data := make([]byte, size)
		rnd.Read(data)

		seg := NewSegment(1, data)
		sealed := seg.Header.Checksum

		for i := 0; i < 3; i++ {
			if !seg.Verify() {
				t.Fatalf("size %d: verification %d failed", size, i)
			}
			if seg.Header.Checksum != sealed {
				t.Fatalf("size %d: verification altered checksum %#04x to %#04x", size, sealed, seg.Header.Checksum)
			}
		}

		seg.Seal()
		if seg.Header.Checksum != sealed {
			t.Fatalf("size %d: resealing produced %#04x instead of %#04x", size, seg.Header.Checksum, sealed)
		}
	}
}

func TestChecksumDetectsBitFlip(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	data := make([]byte, DefaultSegmentSize)
	rnd.Read(data)

	wire := NewSegment(3, data).ToBytes()

	for _, bit := range []int{0, 7, 1000, 8*DefaultSegmentSize - 1} {
		corrupted := append([]byte(nil), wire...)
		corrupted[SeqSize+bit/8] ^= 1 << (bit % 8)

		seg, err := SegmentFromBytes(corrupted)
		if err != nil {
			t.Fatal(err)
		}
		if seg.Verify() {
			t.Fatalf("flipping payload bit %d was not detected", bit)
		}
	}
}

func TestVerifyDeclaredLengthTooLarge(t *testing.T) {
	seg := NewSegment(1, []byte{1, 2, 3, 4})
	seg.Header.Length = 5

	if seg.Verify() {
		t.Fatal("segment declaring more bytes than its slot verified")
	}
}
