package netrole

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/cenkalti/backoff/v4"

	"github.com/sweeney/plant-irrigator/internal/state"
)

func TestClassify(t *testing.T) {
	base := errors.New("exit status 4")
	tests := []struct {
		out  string
		want error
	}{
		{"Error: Connection activation failed: Secrets were required, but not provided.", ErrBadCredentials},
		{"Error: 802-11-wireless-security.psk: property is invalid.", ErrBadCredentials},
		{"Error: No network with SSID 'garden' found.", ErrAPNotFound},
		{"Error: Connection activation failed: IP configuration could not be reserved.", ErrConnect},
		{"", ErrConnect},
	}
	for _, tt := range tests {
		err := classify(tt.out, base)
		if !errors.Is(err, tt.want) {
			t.Errorf("classify(%q): got %v, want %v", tt.out, err, tt.want)
		}
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("x: %w", ErrBadCredentials), "wifi: wrong password"},
		{fmt.Errorf("x: %w", ErrAPNotFound), "wifi: network not found"},
		{ErrConnect, "wifi: connect failed"},
		{errors.New("other"), "wifi: connect failed"},
	}
	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%v): got %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestParseAddress(t *testing.T) {
	tests := map[string]string{
		"192.168.1.42/24\n":                  "192.168.1.42",
		"10.42.0.1/24 | 10.0.0.5/8":          "10.42.0.1",
		"":                                   "",
		"  172.16.0.9/16  \n172.16.0.10/16 ": "172.16.0.9",
	}
	for in, want := range tests {
		if got := parseAddress(in); got != want {
			t.Errorf("parseAddress(%q): got %q, want %q", in, got, want)
		}
	}
}

type call struct {
	name string
	args []string
}

func scripted(calls *[]call, results map[string]struct {
	out string
	err error
}) Runner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, call{name, args})
		r := results[args[len(args)-1]]
		return []byte(r.out), r.err
	}
}

func TestNMCLIJoin(t *testing.T) {
	var calls []call
	run := scripted(&calls, map[string]struct {
		out string
		err error
	}{
		"wlan1": {out: "192.168.1.42/24\n"},
	})
	n := NewNMCLI("wlan1", run)

	info, err := n.Join(context.Background(), state.Credentials{SSID: "garden", Password: "pw"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := state.NetworkInfo{Role: RoleStation, Status: "connected", SSID: "garden", IP: "192.168.1.42"}
	if info != want {
		t.Errorf("got %+v, want %+v", info, want)
	}

	wantArgs := []string{"--wait", "30", "device", "wifi", "connect", "garden", "password", "pw", "ifname", "wlan1"}
	if len(calls) != 2 || !reflect.DeepEqual(calls[0].args, wantArgs) {
		t.Errorf("connect args: got %v, want %v", calls, wantArgs)
	}
}

func TestNMCLIJoinClassifiesFailure(t *testing.T) {
	run := func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte("Error: No network with SSID 'garden' found."), errors.New("exit status 10")
	}
	n := NewNMCLI("", run)

	_, err := n.Join(context.Background(), state.Credentials{SSID: "garden"})
	if !errors.Is(err, ErrAPNotFound) {
		t.Errorf("got %v, want ErrAPNotFound", err)
	}
}

func TestNMCLIStartAccessPoint(t *testing.T) {
	var calls []call
	n := NewNMCLI("", scripted(&calls, nil))

	info, err := n.StartAccessPoint(context.Background(), "plant-setup", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Role != RoleAP || info.SSID != "plant-setup" {
		t.Errorf("got %+v", info)
	}
	wantArgs := []string{"device", "wifi", "hotspot", "ifname", DefaultInterface, "ssid", "plant-setup"}
	if !reflect.DeepEqual(calls[0].args, wantArgs) {
		t.Errorf("hotspot args: got %v, want %v", calls[0].args, wantArgs)
	}
}

func TestJoinWithRetryEventuallySucceeds(t *testing.T) {
	m := &FakeManager{
		JoinErrors: []error{ErrConnect, fmt.Errorf("x: %w", ErrAPNotFound)},
		IP:         "192.168.1.9",
	}
	bo := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 5)

	info, err := JoinWithRetry(context.Background(), m, state.Credentials{SSID: "garden"}, bo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.JoinCount() != 3 {
		t.Errorf("joins: got %d, want 3", m.JoinCount())
	}
	if info.IP != "192.168.1.9" || info.Role != RoleStation {
		t.Errorf("got %+v", info)
	}
}

func TestJoinWithRetryStopsOnBadCredentials(t *testing.T) {
	m := &FakeManager{JoinErrors: []error{fmt.Errorf("x: %w", ErrBadCredentials)}}
	bo := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 5)

	info, err := JoinWithRetry(context.Background(), m, state.Credentials{SSID: "garden"}, bo)
	if !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("got %v, want ErrBadCredentials", err)
	}
	if m.JoinCount() != 1 {
		t.Errorf("joins: got %d, want 1", m.JoinCount())
	}
	if info.Role != RoleOffline || info.Status != "wifi: wrong password" {
		t.Errorf("got %+v", info)
	}
}

func TestJoinWithRetryGivesUp(t *testing.T) {
	m := &FakeManager{JoinErrors: []error{ErrConnect, ErrConnect, ErrConnect, ErrConnect}}
	bo := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)

	_, err := JoinWithRetry(context.Background(), m, state.Credentials{SSID: "garden"}, bo)
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("got %v, want ErrConnect", err)
	}
	if m.JoinCount() != 3 {
		t.Errorf("joins: got %d, want 3", m.JoinCount())
	}
}
