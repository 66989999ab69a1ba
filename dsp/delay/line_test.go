package delay

import "testing"

func TestNewValidation(t *testing.T) {
	for _, n := range []int{0, -1, MaxSize + 1} {
		if _, err := New(n); err == nil {
			t.Fatalf("New(%d): expected error", n)
		}
	}
}

func TestNewRoundsUpToPowerOfTwo(t *testing.T) {
	tests := []struct {
		min  int
		want int
	}{
		{1, 1},
		{2, 2},
		{3, 4},
		{16, 16},
		{17, 32},
		{1000, 1024},
	}

	for _, tt := range tests {
		d, err := New(tt.min)
		if err != nil {
			t.Fatalf("New(%d): %v", tt.min, err)
		}

		if d.Len() != tt.want {
			t.Fatalf("New(%d).Len() got=%d want=%d", tt.min, d.Len(), tt.want)
		}
	}
}

func TestReadOrder(t *testing.T) {
	d, err := New(8)
	if err != nil {
		t.Fatal(err)
	}

	for i := range 8 {
		d.Push(float64(i))
	}

	for k := range 8 {
		if got, want := d.Read(k), float64(7-k); got != want {
			t.Fatalf("Read(%d) got=%v want=%v", k, got, want)
		}
	}
}

func TestReadWrapsAround(t *testing.T) {
	d, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	for i := range 10 {
		d.Push(float64(i))
	}

	if got := d.Read(0); got != 9 {
		t.Fatalf("Read(0) got=%v want=9", got)
	}

	if got := d.Read(3); got != 6 {
		t.Fatalf("Read(3) got=%v want=6", got)
	}

	if got := d.Read(4); got != 9 {
		t.Fatalf("Read(4) should wrap to the newest sample, got=%v", got)
	}
}

func TestPopDelaysByConfiguredAmount(t *testing.T) {
	d, err := New(5)
	if err != nil {
		t.Fatal(err)
	}

	if err := d.SetDelay(3); err != nil {
		t.Fatal(err)
	}

	for i := range 20 {
		got := d.Tick(float64(i + 1))

		want := 0.0
		if i >= 3 {
			want = float64(i - 2)
		}

		if got != want {
			t.Fatalf("tick %d got=%v want=%v", i, got, want)
		}
	}
}

func TestZeroDelayPassesThrough(t *testing.T) {
	d, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	for _, x := range []float64{0.5, -1, 3} {
		if got := d.Tick(x); got != x {
			t.Fatalf("Tick(%v)=%v", x, got)
		}
	}
}

func TestSetDelayValidation(t *testing.T) {
	d, err := New(8)
	if err != nil {
		t.Fatal(err)
	}

	if err := d.SetDelay(-1); err == nil {
		t.Fatal("SetDelay(-1): expected error")
	}

	if err := d.SetDelay(8); err == nil {
		t.Fatal("SetDelay(8): expected error")
	}

	if err := d.SetDelay(7); err != nil || d.Delay() != 7 {
		t.Fatalf("SetDelay(7): err=%v delay=%d", err, d.Delay())
	}
}

func TestReset(t *testing.T) {
	d, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	_ = d.SetDelay(2)

	for i := range 6 {
		d.Push(float64(i + 1))
	}

	d.Reset()

	for k := range d.Len() {
		if d.Read(k) != 0 {
			t.Fatalf("Read(%d) after reset=%v", k, d.Read(k))
		}
	}

	if d.Delay() != 2 {
		t.Fatalf("Reset changed the delay: %d", d.Delay())
	}
}

func BenchmarkTick(b *testing.B) {
	d, err := New(1024)
	if err != nil {
		b.Fatal(err)
	}

	_ = d.SetDelay(700)

	for b.Loop() {
		for i := range 1024 {
			d.Tick(float64(i))
		}
	}
}
