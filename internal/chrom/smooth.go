package chrom

// haarForward performs one level of the Haar wavelet transform using the
// lifting scheme. For an odd number of samples the last one is not
// transformed.
func haarForward(x []float64) (approx, detail []float64) {
	half := len(x) / 2
	approx = make([]float64, half)
	detail = make([]float64, half)
	for k := 0; k < half; k++ {
		even, odd := x[2*k], x[2*k+1]
		detail[k] = odd - even          // predict
		approx[k] = even + detail[k]/2 // update
	}
	return approx, detail
}

// Smooth denoises an intensity vector with a one-level Haar transform.
// The detail band is dropped and the approximation is put back on the
// original sample positions, so the result has the same length as the
// input and lines up with the original retention times.
func Smooth(intens []float64) []float64 {
	out := make([]float64, len(intens))
	copy(out, intens)
	if len(intens) < 2 {
		return out
	}
	approx, _ := haarForward(intens)
	for k, s := range approx {
		out[2*k] = s
		out[2*k+1] = s
	}
	return out
}
