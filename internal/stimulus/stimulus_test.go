package stimulus

import (
	"math"
	"testing"
)

func TestPulse(t *testing.T) {
	got, err := Pulse(10, 35, DefaultPulseAmplitude)
	if err != nil {
		t.Fatalf("Pulse: %v", err)
	}
	if len(got) != 35 {
		t.Fatalf("len = %d, want 35", len(got))
	}
	for i, v := range got {
		want := 0.0
		if i == 10 || i == 20 || i == 30 {
			want = DefaultPulseAmplitude
		}
		if v != want {
			t.Errorf("pulse[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestGenerators_RejectBadArguments(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"pulse zero interval", func() error { _, err := Pulse(0, 10, 1); return err }},
		{"pulse negative length", func() error { _, err := Pulse(5, -1, 1); return err }},
		{"cosine zero period", func() error { _, err := Cosine(10, 0, 1); return err }},
		{"random negative length", func() error { _, err := Random(-1, 1, 0); return err }},
		{"constant negative length", func() error { _, err := Constant(-3, 1); return err }},
		{"xor length mismatch", func() error { _, err := XOR([]float64{1}, nil, 0.5); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRandom_SeededAndBounded(t *testing.T) {
	a, _ := Random(200, 0.5, 42)
	b, _ := Random(200, 0.5, 42)
	c, _ := Random(200, 0.5, 43)

	differs := false
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed differs at %d", i)
		}
		if a[i] < 0 || a[i] >= 0.5 {
			t.Fatalf("value %v outside [0, 0.5)", a[i])
		}
		if a[i] != c[i] {
			differs = true
		}
	}
	if !differs {
		t.Error("different seeds produced identical sequences")
	}
}

func TestCosine(t *testing.T) {
	got, _ := Cosine(4, 4, 2)
	want := []float64{2, 0, -2, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("cosine[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestXOR(t *testing.T) {
	a := []float64{0, 0.6, 0, 0.6}
	b := []float64{0, 0, 0.6, 0.6}
	got, err := XOR(a, b, 0.5)
	if err != nil {
		t.Fatalf("XOR: %v", err)
	}
	want := []float64{0, 1, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("xor[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEncode_PulseTrain(t *testing.T) {
	wave, _ := Pulse(10, 22, DefaultPulseAmplitude)
	got, err := Encode([][]float64{wave}, DefaultEncoderParams())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := []float64{
		-70, -70, -70, -70, -70, -70, -70, -70, -70, -70,
		-55, 40, -20, -80, -80, -70, -70, -70, -70, -70,
		-55, 40,
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("encoded[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEncode_SumsSignals(t *testing.T) {
	// Neither signal crosses 0.5 alone; together they do.
	a, _ := Constant(3, 0.3)
	b, _ := Constant(3, 0.3)
	got, err := Encode([][]float64{a, b}, DefaultEncoderParams())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got[0] != -55 {
		t.Errorf("encoded[0] = %v, want spike onset -55", got[0])
	}

	single, _ := Encode([][]float64{a}, DefaultEncoderParams())
	for i, v := range single {
		if v != -70 {
			t.Errorf("single encoded[%d] = %v, want -70", i, v)
		}
	}
}

func TestEncode_RejectsMismatchedSignals(t *testing.T) {
	if _, err := Encode(nil, DefaultEncoderParams()); err == nil {
		t.Error("expected error for no signals")
	}
	if _, err := Encode([][]float64{{1, 2}, {1}}, DefaultEncoderParams()); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}
