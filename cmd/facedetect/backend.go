package main

import (
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-yoloface/pkg/detection"
)

const (
	backendTriton = "triton"
	backendYuNet  = "yunet"
	backendAuto   = "auto"
)

// detectorFactory builds one backend on demand, so backends that are not
// selected are never loaded.
type detectorFactory func() (detection.Detector, error)

// selectBackend builds the detector named by backend. Auto prefers Triton
// and chains YuNet behind it. Either one alone is enough; auto fails only
// when neither can be built.
func selectBackend(backend string, remote, local detectorFactory, logger *slog.Logger) (detection.Detector, error) {
	switch backend {
	case backendTriton:
		return remote()

	case backendYuNet:
		return local()

	case backendAuto:
		r, rerr := remote()
		l, lerr := local()
		switch {
		case rerr != nil && lerr != nil:
			return nil, fmt.Errorf("no backend available: triton: %w; yunet: %w", rerr, lerr)
		case rerr != nil:
			logger.Warn("triton unavailable, using yunet only", "error", rerr)
			return l, nil
		case lerr != nil:
			logger.Warn("yunet unavailable, using triton without fallback", "error", lerr)
			return r, nil
		}
		return detection.NewChain(logger, r, l)

	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}
