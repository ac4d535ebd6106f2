package core

import (
	"errors"
)

var ErrNotInitialized = errors.New("system used before initialization")
