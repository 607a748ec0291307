//go:build tinygo || !cgo

package glayeraux

import (
	"errors"

	"github.com/soypat/glayer"
)

func ui(layers []glayer.Layer, cfg UIConfig) error {
	return errors.New("require cgo for UI rendering")
}
