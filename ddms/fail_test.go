package ddms

import (
	"errors"
	"testing"

	"github.com/pithecene-io/ddmscope/payload"
	"github.com/pithecene-io/ddmscope/wire"
)

func TestDecodeFail(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantCode int32
		wantMsg  string
		wantErr  bool
	}{
		{
			name:     "code and message",
			data:     []byte{0, 0, 0, 5, 0, 0, 0, 3, 0, 'a', 0, 'b', 0, 'c'},
			wantCode: 5,
			wantMsg:  "abc",
		},
		{
			name:     "negative code and empty message",
			data:     []byte{0xFF, 0xFF, 0xFF, 0xFE, 0, 0, 0, 0},
			wantCode: -2,
			wantMsg:  "",
		},
		{
			name:     "non-ASCII message",
			data:     []byte{0, 0, 0, 1, 0, 0, 0, 2, 0x00, 0xE9, 0x4E, 0x2D},
			wantCode: 1,
			wantMsg:  "é中",
		},
		{
			name:     "charCount missing",
			data:     []byte{0, 0, 0, 5},
			wantCode: -1,
			wantMsg:  InvalidFailMessage,
			wantErr:  true,
		},
		{
			name:     "charCount beyond payload",
			data:     []byte{0, 0, 0, 5, 0, 0, 0, 9, 0, 'a'},
			wantCode: -1,
			wantMsg:  InvalidFailMessage,
			wantErr:  true,
		},
		{
			name:     "empty payload",
			data:     nil,
			wantCode: -1,
			wantMsg:  InvalidFailMessage,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewBytesChunk(FAIL, tt.data)
			if err != nil {
				t.Fatalf("NewBytesChunk: %v", err)
			}
			fe := DecodeFail(t.Context(), c)
			if fe.Code != tt.wantCode || fe.Message != tt.wantMsg {
				t.Fatalf("DecodeFail = {%d, %q}, want {%d, %q}", fe.Code, fe.Message, tt.wantCode, tt.wantMsg)
			}
			if tt.wantErr && !errors.Is(fe, wire.ErrInvalidFormat) {
				t.Errorf("expected cause ErrInvalidFormat, got %v", fe.Cause)
			}
			if !tt.wantErr && fe.Cause != nil {
				t.Errorf("unexpected cause %v", fe.Cause)
			}
		})
	}
}

func TestDecodeFail_ConsumedPayload(t *testing.T) {
	p, _ := streamPacket(t, rawPacket(1, rawChunk("FAIL", []byte{0, 0, 0, 5, 0, 0, 0, 0})))
	seq, err := DecodeChunks(t.Context(), p)
	if err != nil {
		t.Fatalf("DecodeChunks: %v", err)
	}
	defer seq.Close()
	c, err := seq.Next(t.Context())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if fe := DecodeFail(t.Context(), c); fe.Code != 5 {
		t.Fatalf("first decode = %v", fe)
	}
	fe := DecodeFail(t.Context(), c)
	if fe.Code != -1 || !errors.Is(fe, wire.ErrUnavailable) {
		t.Fatalf("second decode = %v", fe)
	}
}

func TestNewFailChunk_RoundTrip(t *testing.T) {
	c, err := NewFailChunk(42, "no such view")
	if err != nil {
		t.Fatalf("NewFailChunk: %v", err)
	}
	if c.Type() != FAIL || c.Length() != 8+2*12 {
		t.Fatalf("chunk = %s", c)
	}
	fe := DecodeFail(t.Context(), c)
	if fe.Code != 42 || fe.Message != "no such view" || fe.Cause != nil {
		t.Fatalf("DecodeFail = %+v", fe)
	}
	if fe.Error() != "ddms: FAIL 42: no such view" {
		t.Errorf("Error() = %q", fe.Error())
	}
	data, _ := payload.ReadAll(t.Context(), c.Payload())
	if data[8] != 0 || data[9] != 'n' {
		t.Errorf("message is not UTF-16BE: % x", data[8:10])
	}
}
