package segio

import (
	"compress/zlib"
	"errors"
	"io"
	"math"
	"math/rand"
	"testing"
)

func decodeBase64Buffer(t *testing.T, s string) *Buffer {
	t.Helper()

	bs, err := DecodeBase64(s)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	buffer := new(Buffer)
	buffer.WriteByteString(bs)

	return buffer
}

func inflate(deflated *Buffer) (*Buffer, error) {
	result := new(Buffer)
	source := NewInflaterSource(deflated)

	for {
		_, err := source.ReadTo(result, math.MaxInt64)
		if errors.Is(err, io.EOF) {
			return result, nil
		} else if err != nil {
			return nil, err
		}
	}
}

func TestInflate(t *testing.T) {
	deflated := decodeBase64Buffer(t, "eJxzz09RyEjNKVAoLdZRKE9VL0pVyMxTKMlIVchIzEspVshPU0jNS8/MS00tKtYDAF6CD5s=")

	inflated, err := inflate(deflated)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if str, _ := inflated.ReadString(inflated.Size()); str != "God help us, we're in the hands of engineers." {
		t.Errorf("unexpected message: %q", str)
	}
}

func TestInflateTruncated(t *testing.T) {
	deflated := decodeBase64Buffer(t, "eJxzz09RyEjNKVAoLdZRKE9VL0pVyMxTKMlIVchIzEspVshPU0jNS8/MS00tKtYDAF6CDw==")

	if _, err := inflate(deflated); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expecting io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestInflateWellCompressed(t *testing.T) {
	deflated := decodeBase64Buffer(t,
		"eJztwTEBAAAAwqCs61/CEL5AAQAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"+
			"AAAAAAAAAAB8BtFeWvE=")

	inflated, err := inflate(deflated)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if str, _ := inflated.ReadString(inflated.Size()); str != repeat('a', 1024*1024) {
		t.Errorf("unexpected contents")
	}
}

func TestInflatePoorlyCompressed(t *testing.T) {
	original := make([]byte, 1024*1024)
	rand.New(rand.NewSource(1)).Read(original)

	deflated := new(Buffer)
	w := zlib.NewWriter(deflated)

	if _, err := w.Write(original); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	inflated, err := inflate(deflated)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if p, _ := inflated.ReadBytes(inflated.Size()); string(p) != string(original) {
		t.Errorf("round trip corrupted data")
	}
}

func TestInflateCorrupt(t *testing.T) {
	buffer := new(Buffer)
	buffer.WriteString("these are not the deflated bytes you are looking for")

	if _, err := inflate(buffer); !errors.Is(err, ErrEncoding) {
		t.Errorf("expecting ErrEncoding, got %v", err)
	}
}

func TestInflaterSourceClose(t *testing.T) {
	source := NewInflaterSource(decodeBase64Buffer(t, "eJxzz09RyEjNKVAoLdZRKE9VL0pVyMxTKMlIVchIzEspVshPU0jNS8/MS00tKtYDAF6CD5s="))

	if err := source.Close(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if err := source.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %s", err)
	}

	if _, err := source.ReadTo(new(Buffer), 1); !errors.Is(err, ErrClosed) {
		t.Errorf("expecting ErrClosed, got %v", err)
	}
}
