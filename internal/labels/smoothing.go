// Package labels encodes the training targets of a record. Every label is
// a mapper.Leaf so that labels share the frame, and with it the count
// ordering, of the input features.
package labels

// Smooth returns the smoothed one-hot value of class i among k classes when
// trueClass is correct: 1-eps for the true class and eps/(k-1) elsewhere.
// A single class always gets 1.
func Smooth(eps float64, k, trueClass, i int) float64 {
	if k <= 1 {
		return 1
	}
	if i == trueClass {
		return 1 - eps
	}
	return eps / float64(k-1)
}
