package assets

import "fmt"

/**
 * @brief A typed reference to an asset held by a Storage. The zero value is invalid.
 */
type Handle[A any] struct {
	id uint32
}

func (h Handle[A]) ID() uint32 {
	return h.id
}

func (h Handle[A]) IsValid() bool {
	return h.id != 0
}

func (h Handle[A]) String() string {
	return fmt.Sprintf("handle(%d)", h.id)
}
