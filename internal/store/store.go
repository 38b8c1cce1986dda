// Package store persists runtime configuration as small two-line files in a
// data directory. A missing file means "use defaults" and is not an error.
package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sweeney/plant-irrigator/internal/state"
)

// File names inside the data directory.
const (
	WifiFile  = "wifi_config"
	PumpFile  = "pump_config"
	PlantFile = "plant_data"
)

// ErrCorrupt is returned when a file exists but cannot be parsed.
var ErrCorrupt = errors.New("corrupt config file")

// Store reads and writes config files under Dir.
type Store struct {
	Dir string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// LoadConfig returns the persisted runtime config overlaid on the defaults.
func (s *Store) LoadConfig() (state.RuntimeConfig, error) {
	cfg := state.DefaultConfig()

	lines, err := s.read(PumpFile)
	if err != nil {
		return cfg, err
	}
	if lines != nil {
		threshold, err := strconv.Atoi(lines[0])
		if err != nil || threshold < 0 || threshold > 100 {
			return state.DefaultConfig(), fmt.Errorf("%s: threshold %q: %w", PumpFile, lines[0], ErrCorrupt)
		}
		seconds, err := strconv.Atoi(lines[1])
		if err != nil || seconds <= 0 {
			return state.DefaultConfig(), fmt.Errorf("%s: duration %q: %w", PumpFile, lines[1], ErrCorrupt)
		}
		cfg.Threshold = threshold
		cfg.PumpSeconds = seconds
	}

	lines, err = s.read(PlantFile)
	if err != nil {
		return cfg, err
	}
	if lines != nil {
		cfg.PlantDate = lines[0]
		cfg.PlantName = lines[1]
	}

	return cfg, nil
}

// SavePumpConfig persists threshold and duration.
func (s *Store) SavePumpConfig(threshold, seconds int) error {
	return s.write(PumpFile, strconv.Itoa(threshold), strconv.Itoa(seconds))
}

// SavePlantData persists the plant date and name.
func (s *Store) SavePlantData(date, name string) error {
	return s.write(PlantFile, date, name)
}

// LoadCredentials returns the Wi-Fi credentials, or nil if none are stored.
func (s *Store) LoadCredentials() (*state.Credentials, error) {
	lines, err := s.read(WifiFile)
	if err != nil || lines == nil {
		return nil, err
	}
	if lines[0] == "" {
		return nil, fmt.Errorf("%s: empty ssid: %w", WifiFile, ErrCorrupt)
	}
	return &state.Credentials{SSID: lines[0], Password: lines[1]}, nil
}

// SaveCredentials persists the Wi-Fi credentials.
func (s *Store) SaveCredentials(c state.Credentials) error {
	return s.write(WifiFile, c.SSID, c.Password)
}

// read returns the two lines of name, or nil if the file does not exist.
func (s *Store) read(name string) ([]string, error) {
	f, err := os.Open(filepath.Join(s.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	lines, err := readLines(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("%s: want 2 lines, got %d: %w", name, len(lines), ErrCorrupt)
	}
	return lines[:2], nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	return lines, sc.Err()
}

// write replaces name atomically via a temp file in the same directory.
func (s *Store) write(name, first, second string) error {
	if strings.ContainsAny(first, "\r\n") || strings.ContainsAny(second, "\r\n") {
		return fmt.Errorf("%s: values must not contain newlines", name)
	}

	tmp, err := os.CreateTemp(s.Dir, name+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := fmt.Fprintf(tmp, "%s\n%s\n", first, second); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.Dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
