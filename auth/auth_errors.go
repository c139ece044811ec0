package auth

import "errors"

var (
	ResolverClosedErr    = errors.New("resolver closed")
	PassCancelledErr     = errors.New("resolution pass cancelled")
	MissingDependencyErr = errors.New("missing dependency")
)
