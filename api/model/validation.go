package model

import (
	"errors"
	"fmt"
)

// ErrMalformed marks input rejected before any remote connection is opened.
var ErrMalformed = errors.New("malformed request")

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", ErrMalformed, field)
}

func (r *LoginRequest) Validate() error {
	switch {
	case r.Host == "":
		return missing("host")
	case r.User == "":
		return missing("user")
	case r.Password == "":
		return missing("password")
	}
	return nil
}

func (r *TriggerRequest) Validate() error {
	switch {
	case r.Host == "":
		return missing("host")
	case r.User == "":
		return missing("user")
	case r.Password == "":
		return missing("password")
	case r.RunName == "":
		return missing("runName")
	case r.Descriptor == "":
		return missing("descriptor")
	case r.TargetDir == "":
		return missing("targetDir")
	}
	return nil
}
