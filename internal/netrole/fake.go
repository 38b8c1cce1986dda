package netrole

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweeney/plant-irrigator/internal/state"
)

// FakeManager is a scripted Manager for tests.
type FakeManager struct {
	mu sync.Mutex

	// JoinErrors are returned by successive Join calls; once exhausted Join succeeds.
	JoinErrors []error
	// APError is returned by StartAccessPoint.
	APError error
	// IP is reported on success.
	IP string
	// Block makes Join wait for its context and then fail with ErrConnect.
	Block bool

	Joins    []state.Credentials
	APStarts []string
	// Calls records "join" and "ap" in call order.
	Calls []string
}

// Join records the attempt and returns the next scripted error.
func (f *FakeManager) Join(ctx context.Context, creds state.Credentials) (state.NetworkInfo, error) {
	f.mu.Lock()
	f.Joins = append(f.Joins, creds)
	f.Calls = append(f.Calls, "join")
	block := f.Block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return state.NetworkInfo{}, fmt.Errorf("%w: %v", ErrConnect, ctx.Err())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.JoinErrors) > 0 {
		err := f.JoinErrors[0]
		f.JoinErrors = f.JoinErrors[1:]
		if err != nil {
			return state.NetworkInfo{}, err
		}
	}
	return state.NetworkInfo{Role: RoleStation, Status: "connected", SSID: creds.SSID, IP: f.IP}, nil
}

// StartAccessPoint records the SSID.
func (f *FakeManager) StartAccessPoint(_ context.Context, ssid, _ string) (state.NetworkInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.APStarts = append(f.APStarts, ssid)
	f.Calls = append(f.Calls, "ap")
	if f.APError != nil {
		return state.NetworkInfo{}, f.APError
	}
	return state.NetworkInfo{Role: RoleAP, Status: "setup mode", SSID: ssid, IP: f.IP}, nil
}

// CallLog returns a copy of the recorded call order.
func (f *FakeManager) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// JoinCount returns the number of Join calls.
func (f *FakeManager) JoinCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Joins)
}
