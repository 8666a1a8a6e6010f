package stocktake

import (
	"errors"
	"fmt"
)

var (
	ErrJitSyncFailed     = errors.New("jit sync failed")
	ErrNoActiveSession   = errors.New("no active session")
	ErrOffline           = errors.New("device is offline")
	ErrConflictNotFound  = errors.New("conflict not found")
	ErrInvalidResolution = errors.New("resolution must be local or server")
)

// VersionConflictError is returned by a RemoteService when the expected
// version no longer matches the server's record (HTTP 409).
type VersionConflictError struct {
	ServerVersion int64
	ServerQty     float64
	ServerUser    string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict: server at version %d (qty %v, by %s)", e.ServerVersion, e.ServerQty, e.ServerUser)
}

// AsVersionConflict unwraps err into a VersionConflictError.
func AsVersionConflict(err error) (*VersionConflictError, bool) {
	var vc *VersionConflictError
	if errors.As(err, &vc) {
		return vc, true
	}
	return nil, false
}
