package iv

import "testing"

var benchSink float64

func BenchmarkDiodeEval(b *testing.B) {
	for _, mode := range []ExpMode{ExpFast, ExpExact} {
		b.Run(mode.String(), func(b *testing.B) {
			d, err := NewDiodePair(Silicon1N914(), WithExpMode(mode))
			if err != nil {
				b.Fatal(err)
			}

			v := 0.0

			b.ResetTimer()

			for i := range b.N {
				cur, g := d.Eval(v)
				benchSink += cur + g
				v = float64(i%200)*0.005 - 0.5
			}
		})
	}
}

func BenchmarkPolynomialEval(b *testing.B) {
	p, err := NewSymmetricPolynomial(1, 3)
	if err != nil {
		b.Fatal(err)
	}

	for i := range b.N {
		cur, g := p.Eval(float64(i%100)*0.02 - 1)
		benchSink += cur + g
	}
}
