package memory

import "github.com/gateward/gateward/pkg/errors"

func errUnavailable() error {
	return errors.ErrStorageUnavailable("memory store unavailable")
}
