package ddms

import (
	"errors"
	"testing"

	"github.com/pithecene-io/ddmscope/wire"
)

func TestParseChunkType_RoundTrip(t *testing.T) {
	for _, ct := range KnownChunkTypes() {
		got, err := ParseChunkType(ct.String())
		if err != nil {
			t.Fatalf("ParseChunkType(%q): %v", ct, err)
		}
		if got != ct {
			t.Errorf("ParseChunkType(%q) = %#x, want %#x", ct, uint32(got), uint32(ct))
		}
	}
	for _, tag := range []string{"ABCD", "zz01", "    "} {
		ct, err := ParseChunkType(tag)
		if err != nil {
			t.Fatalf("ParseChunkType(%q): %v", tag, err)
		}
		if ct.String() != tag {
			t.Errorf("round trip of %q = %q", tag, ct.String())
		}
	}
}

func TestParseChunkType_PacksMSBFirst(t *testing.T) {
	ct, err := ParseChunkType("HELO")
	if err != nil {
		t.Fatalf("ParseChunkType: %v", err)
	}
	if uint32(ct) != 0x48454C4F || ct != HELO {
		t.Errorf("HELO = %#x", uint32(ct))
	}
}

func TestParseChunkType_InvalidLength(t *testing.T) {
	for _, tag := range []string{"", "ABC", "ABCDE"} {
		if _, err := ParseChunkType(tag); !errors.Is(err, wire.ErrInvalidFormat) {
			t.Errorf("ParseChunkType(%q): expected ErrInvalidFormat, got %v", tag, err)
		}
	}
}

func TestChunkType_StringDoesNotValidate(t *testing.T) {
	ct := ChunkType(0x00FF7F41)
	if got := ct.String(); got != "\x00\xff\x7fA" {
		t.Errorf("String() = %q", got)
	}
}

func TestChunkType_Known(t *testing.T) {
	if !FAIL.Known() || !MustParseChunkType("MPRQ").Known() {
		t.Error("registered types should be known")
	}
	if MustParseChunkType("XXXX").Known() {
		t.Error("XXXX should not be known")
	}
	types := KnownChunkTypes()
	types[0] = 0
	if KnownChunkTypes()[0] != HELO {
		t.Error("KnownChunkTypes must return a copy")
	}
}
