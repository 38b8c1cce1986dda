package netrole

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sweeney/plant-irrigator/internal/state"
)

// DefaultInterface is the wireless interface on a Raspberry Pi.
const DefaultInterface = "wlan0"

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NMCLI drives NetworkManager through the nmcli command.
type NMCLI struct {
	iface string
	run   Runner
}

// NewNMCLI returns a Manager for iface. A nil run uses os/exec.
func NewNMCLI(iface string, run Runner) *NMCLI {
	if iface == "" {
		iface = DefaultInterface
	}
	if run == nil {
		run = execRunner
	}
	return &NMCLI{iface: iface, run: run}
}

// Join connects iface to the named network.
func (n *NMCLI) Join(ctx context.Context, creds state.Credentials) (state.NetworkInfo, error) {
	out, err := n.run(ctx, "nmcli", "--wait", "30", "device", "wifi", "connect", creds.SSID,
		"password", creds.Password, "ifname", n.iface)
	if err != nil {
		return state.NetworkInfo{}, classify(string(out), err)
	}
	return state.NetworkInfo{
		Role:   RoleStation,
		Status: "connected",
		SSID:   creds.SSID,
		IP:     n.address(ctx),
	}, nil
}

// StartAccessPoint starts a NetworkManager hotspot on iface.
func (n *NMCLI) StartAccessPoint(ctx context.Context, ssid, password string) (state.NetworkInfo, error) {
	args := []string{"device", "wifi", "hotspot", "ifname", n.iface, "ssid", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	out, err := n.run(ctx, "nmcli", args...)
	if err != nil {
		return state.NetworkInfo{}, fmt.Errorf("start hotspot: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return state.NetworkInfo{
		Role:   RoleAP,
		Status: "setup mode",
		SSID:   ssid,
		IP:     n.address(ctx),
	}, nil
}

// address returns the first IPv4 address of iface without its prefix length.
func (n *NMCLI) address(ctx context.Context) string {
	out, err := n.run(ctx, "nmcli", "-g", "IP4.ADDRESS", "device", "show", n.iface)
	if err != nil {
		return ""
	}
	return parseAddress(string(out))
}

func parseAddress(out string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	// multiple addresses are separated by " | "
	line, _, _ = strings.Cut(line, " | ")
	ip, _, _ := strings.Cut(strings.TrimSpace(line), "/")
	return ip
}

// classify maps nmcli error output to a failure class.
func classify(out string, err error) error {
	msg := strings.TrimSpace(out)
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "secrets were required"),
		strings.Contains(lower, "property is invalid"),
		strings.Contains(lower, "802-11-wireless-security.psk"):
		return fmt.Errorf("%s: %w", msg, ErrBadCredentials)
	case strings.Contains(lower, "no network with ssid"):
		return fmt.Errorf("%s: %w", msg, ErrAPNotFound)
	default:
		return fmt.Errorf("%s: %v: %w", msg, err, ErrConnect)
	}
}
