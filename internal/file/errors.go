package file

import (
	"errors"
	"fmt"
)

var ErrAssetNotFound = errors.New("asset not found")

type ErrOpenFile struct {
	Err error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Errorf("failed to open file: %w", e.Err).Error()
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

type ErrReadDir struct {
	Err error
}

func (e *ErrReadDir) Error() string {
	return fmt.Errorf("failed to read directory: %w", e.Err).Error()
}

func (e *ErrReadDir) Unwrap() error {
	return e.Err
}
