package pkg

import "fmt"

// ErrStoreCall reports a persistence call that failed after the in-memory
// state had already been changed.
type ErrStoreCall struct {
	Action string
	Info   string
	Err    error
}

func (e *ErrStoreCall) Error() string {
	if e.Info == "" {
		return fmt.Sprintf("store action %q failed: %s", e.Action, e.Err)
	}
	return fmt.Sprintf("store action %q failed: %s; info: %s", e.Action, e.Err, e.Info)
}

func (e *ErrStoreCall) Unwrap() error {
	return e.Err
}
