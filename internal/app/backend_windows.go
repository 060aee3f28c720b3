//go:build windows

package app

import (
	"github.com/SaitoAtsushi/thin-http/pkg/inet"
	"github.com/SaitoAtsushi/thin-http/pkg/inet/wininet"
)

func newWinINetBackend() (inet.Backend, error) {
	return wininet.New()
}
