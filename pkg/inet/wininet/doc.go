// Package wininet implements inet.Backend with the Windows Internet API
// (wininet.dll). It is only available on windows; other platforms use
// inet.RestyBackend.
package wininet
