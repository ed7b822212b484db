package window_test

import (
	"fmt"

	"github.com/klecknerlab/wavefit/dsp/window"
)

func ExampleNormalized() {
	coeffs, _ := window.Normalized(window.TypeHann, 512)

	sum := 0.0
	for _, c := range coeffs {
		sum += c
	}

	fmt.Printf("sum = %.4f\n", sum)
	// Output:
	// sum = 2.0000
}

func ExampleParseType() {
	t, err := window.ParseType("flat-top")
	fmt.Println(t == window.TypeFlatTop, err)
	// Output:
	// true <nil>
}
