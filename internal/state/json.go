package state

import (
	"encoding/json"
	"time"
)

// BackendJSON is the payload served by /get_backend_data.
type BackendJSON struct {
	Config        ConfigJSON   `json:"config"`
	Plant         PlantJSON    `json:"plant"`
	Readings      ReadingsJSON `json:"readings"`
	Pump          PumpJSON     `json:"pump"`
	Mode          string       `json:"mode"`
	APMode        bool         `json:"ap_mode"`
	StatusMessage string       `json:"status_message"`
	Network       *NetworkJSON `json:"network,omitempty"`
	MQTTConnected bool         `json:"mqtt_connected"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Timestamp     string       `json:"timestamp"`
}

// ConfigJSON is the JSON representation of the pump configuration.
type ConfigJSON struct {
	Threshold   int `json:"threshold"`
	PumpSeconds int `json:"pump_seconds"`
}

// PlantJSON is the JSON representation of plant metadata.
type PlantJSON struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

// ReadingsJSON holds the latest sensor values. Unsampled values are null.
type ReadingsJSON struct {
	OutsideTemp     *float64 `json:"outside_temperature"`
	OutsideHumidity *float64 `json:"outside_humidity"`
	InsideMoisture  *int     `json:"inside_moisture"`
	AmbientError    bool     `json:"ambient_error"`
	MoistureError   bool     `json:"moisture_error"`
}

// PumpJSON is the JSON representation of the pump state.
type PumpJSON struct {
	Active   bool   `json:"active"`
	Running  bool   `json:"running"`
	Attempts int    `json:"attempts"`
	Phase    string `json:"phase,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Role   string `json:"role"`
	Status string `json:"status"`
	SSID   string `json:"ssid"`
	IP     string `json:"ip"`
}

// SystemJSON is the payload of a lifecycle telemetry event.
type SystemJSON struct {
	Event  string      `json:"event"`
	Reason string      `json:"reason,omitempty"`
	State  BackendJSON `json:"state"`
}

func buildBackend(snap Snapshot) BackendJSON {
	b := BackendJSON{
		Config: ConfigJSON{
			Threshold:   snap.Config.Threshold,
			PumpSeconds: snap.Config.PumpSeconds,
		},
		Plant: PlantJSON{Name: snap.Config.PlantName, Date: snap.Config.PlantDate},
		Readings: ReadingsJSON{
			OutsideTemp:     snap.Reading.OutsideTemp,
			OutsideHumidity: snap.Reading.OutsideHumidity,
			InsideMoisture:  snap.Reading.Moisture,
			AmbientError:    snap.Reading.AmbientFailed,
			MoistureError:   snap.Reading.MoistureFailed,
		},
		Pump: PumpJSON{
			Active:   snap.Pump.Active,
			Running:  snap.Pump.Running,
			Attempts: snap.Pump.Attempts,
			Phase:    snap.Pump.Phase,
		},
		Mode:          string(snap.Mode),
		APMode:        snap.APMode,
		StatusMessage: snap.Status,
		MQTTConnected: snap.MQTTConnected,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
	}
	if snap.Network != nil {
		b.Network = &NetworkJSON{
			Role:   snap.Network.Role,
			Status: snap.Network.Status,
			SSID:   snap.Network.SSID,
			IP:     snap.Network.IP,
		}
	}
	return b
}

// FormatJSON returns the backend data payload for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(buildBackend(snap), "", "  ")
	return data
}

// FormatSystemEvent returns the payload for an MQTT lifecycle event.
func FormatSystemEvent(snap Snapshot, event, reason string) []byte {
	data, _ := json.Marshal(SystemJSON{Event: event, Reason: reason, State: buildBackend(snap)})
	return data
}
