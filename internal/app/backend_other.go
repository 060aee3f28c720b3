//go:build !windows

package app

import (
	"errors"

	"github.com/SaitoAtsushi/thin-http/pkg/inet"
)

func newWinINetBackend() (inet.Backend, error) {
	return nil, errors.New("wininet backend is only available on windows")
}
