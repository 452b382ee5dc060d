package nstat

import "fmt"

// LaunchError is returned when the command could not be started at all.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %q: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when the command output is not valid UTF-8 text.
type DecodeError struct {
	Command string
	Size    int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode output of %q: %d bytes are not valid utf-8", e.Command, e.Size)
}
