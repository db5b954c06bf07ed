package amx

import (
	"encoding/binary"
	"testing"
)

// buildImage assembles a minimal well-formed module image: a header
// with one public, one native, and a data section big enough to push a
// few cells onto.
func buildImage(t *testing.T, dataSize int32) []byte {
	t.Helper()

	const (
		cod       = headerSize
		codeBytes = 16
	)
	dat := int32(cod + codeBytes)
	hea := dat + dataSize/2
	stp := dat + dataSize
	publics := stp
	natives := publics + entryRecordSize
	libraries := natives + entryRecordSize
	pubNameOff := libraries
	nativeNameOff := pubNameOff + 8

	size := nativeNameOff + 8
	img := make([]byte, size)
	r := binary.LittleEndian

	r.PutUint32(img[0:4], uint32(size))
	r.PutUint16(img[4:6], 0xF1E0)
	img[6] = 8
	img[7] = 8
	r.PutUint16(img[8:10], 0)
	r.PutUint16(img[10:12], 8)
	r.PutUint32(img[12:16], uint32(cod))
	r.PutUint32(img[16:20], uint32(dat))
	r.PutUint32(img[20:24], uint32(hea))
	r.PutUint32(img[24:28], uint32(stp))
	r.PutUint32(img[28:32], 0) // cip: entry at start of code (code-relative)
	r.PutUint32(img[32:36], uint32(publics))
	r.PutUint32(img[36:40], uint32(natives))
	r.PutUint32(img[40:44], uint32(libraries))
	r.PutUint32(img[44:48], uint32(libraries))
	r.PutUint32(img[48:52], uint32(libraries))
	r.PutUint32(img[52:56], uint32(libraries))

	r.PutUint32(img[publics:publics+4], 0)
	r.PutUint32(img[publics+4:publics+8], uint32(pubNameOff))
	copy(img[pubNameOff:], "main\x00")

	r.PutUint32(img[natives:natives+4], 0)
	r.PutUint32(img[natives+4:natives+8], uint32(nativeNameOff))
	copy(img[nativeNameOff:], "print\x00")

	return img
}

func TestNewModuleParsesHeader(t *testing.T) {
	img := buildImage(t, 64)
	m, err := NewModule(img)
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}

	if m.NumPublics() != 1 {
		t.Fatalf("expected 1 public, got %d", m.NumPublics())
	}
	if m.NumNatives() != 1 {
		t.Fatalf("expected 1 native, got %d", m.NumNatives())
	}
	if got := m.PublicName(0); got != "main" {
		t.Fatalf("expected public name %q, got %q", "main", got)
	}
	if got := m.NativeName(0); got != "print" {
		t.Fatalf("expected native name %q, got %q", "print", got)
	}
	if m.Registers.STK != m.Header().Stp {
		t.Fatalf("expected initial STK == Stp, got %d", m.Registers.STK)
	}
}

func TestNewModuleRejectsTruncated(t *testing.T) {
	if _, err := NewModule(make([]byte, 4)); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestNewModuleRejectsBadHeader(t *testing.T) {
	img := buildImage(t, 64)
	// Break the cod < dat invariant.
	binary.LittleEndian.PutUint32(img[12:16], binary.LittleEndian.Uint32(img[16:20])+4)
	if _, err := NewModule(img); err == nil {
		t.Fatalf("expected header validation to fail")
	}
}

func TestPushCellRoundTrip(t *testing.T) {
	img := buildImage(t, 64)
	m, err := NewModule(img)
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}

	before := m.Registers.STK
	m.PushCell(1234)
	if m.Registers.STK != before-4 {
		t.Fatalf("expected STK to decrease by 4, got before=%d after=%d", before, m.Registers.STK)
	}
	if got := m.CellAt(m.Header().Dat + m.Registers.STK); got != 1234 {
		t.Fatalf("expected pushed cell 1234, got %d", got)
	}
}

func TestSetCellAtRoundTrip(t *testing.T) {
	img := buildImage(t, 64)
	m, err := NewModule(img)
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}

	off := m.Header().Dat
	m.SetCellAt(off, -7)
	if got := m.CellAt(off); got != -7 {
		t.Fatalf("expected -7, got %d", got)
	}
}

func TestRegisterNativesSetsFlag(t *testing.T) {
	img := buildImage(t, 64)
	m, err := NewModule(img)
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}

	if m.NativesRegistered() {
		t.Fatalf("expected NativesRegistered to be false before RegisterNatives")
	}
	called := false
	m.RegisterNatives(func(mod *Module, index int32, params []Cell) (Cell, ErrorCode) {
		called = true
		return 0, ErrNone
	})
	if !m.NativesRegistered() {
		t.Fatalf("expected NativesRegistered to be true after RegisterNatives")
	}
	if m.Callback == nil {
		t.Fatalf("expected Callback to be installed")
	}
	m.Callback(m, 0, nil)
	if !called {
		t.Fatalf("expected installed callback to be invoked")
	}
}

func TestFindPublicAndNative(t *testing.T) {
	img := buildImage(t, 64)
	m, err := NewModule(img)
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}

	if idx, ok := m.FindPublic(0); !ok || idx != 0 {
		t.Fatalf("expected to find public at index 0, got idx=%d ok=%v", idx, ok)
	}
	if _, ok := m.FindPublic(999999); ok {
		t.Fatalf("expected FindPublic to fail for a bogus address")
	}
}

func TestFloat32BitsRoundTrip(t *testing.T) {
	f := float32(3.25)
	c := CellFromFloat32(f)
	if got := Float32Bits(c); got != f {
		t.Fatalf("expected %v, got %v", f, got)
	}
}
