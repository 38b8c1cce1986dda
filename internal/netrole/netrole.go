// Package netrole switches the controller between its two network roles:
// station (joined to the operator's Wi-Fi, serving the runtime API) and
// access point (serving the credentials form).
package netrole

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cenkalti/backoff/v4"

	"github.com/sweeney/plant-irrigator/internal/state"
)

// Roles reported in state.NetworkInfo.
const (
	RoleStation = "station"
	RoleAP      = "ap"
	RoleOffline = "offline"
)

// Connect failure classes.
var (
	ErrBadCredentials = errors.New("wrong password")
	ErrAPNotFound     = errors.New("network not found")
	ErrConnect        = errors.New("connect failed")
)

// Manager brings up a network role.
type Manager interface {
	// Join connects to the access point named by creds.
	Join(ctx context.Context, creds state.Credentials) (state.NetworkInfo, error)

	// StartAccessPoint opens a local access point.
	StartAccessPoint(ctx context.Context, ssid, password string) (state.NetworkInfo, error)
}

// Message returns the operator-facing status line for a join failure.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadCredentials):
		return "wifi: wrong password"
	case errors.Is(err, ErrAPNotFound):
		return "wifi: network not found"
	default:
		return "wifi: connect failed"
	}
}

// JoinWithRetry calls m.Join until it succeeds, bo gives up, or the
// credentials are rejected. Wrong passwords are not retried.
func JoinWithRetry(ctx context.Context, m Manager, creds state.Credentials, bo backoff.BackOff) (state.NetworkInfo, error) {
	var info state.NetworkInfo
	attempt := 0

	err := backoff.Retry(func() error {
		attempt++
		got, err := m.Join(ctx, creds)
		if err == nil {
			info = got
			return nil
		}
		log.Printf("netrole: join %q attempt %d: %v", creds.SSID, attempt, err)
		if errors.Is(err, ErrBadCredentials) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return state.NetworkInfo{Role: RoleOffline, Status: Message(err), SSID: creds.SSID},
			fmt.Errorf("join %q: %w", creds.SSID, err)
	}
	return info, nil
}
