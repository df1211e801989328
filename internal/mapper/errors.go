package mapper

import "errors"

var (
	ErrDimensionMismatch = errors.New("children must share the same number of dimensions")
	ErrNotPrepared       = errors.New("prepare must be called for this frame before reading values")
	ErrAlreadyPrepared   = errors.New("frame already prepared")
	ErrIndexOutOfRange   = errors.New("feature index out of range")
	ErrNodeReused        = errors.New("node already belongs to a tree")
	ErrInvalidNode       = errors.New("invalid node")
)
