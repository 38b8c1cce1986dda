package web

import (
	"bytes"
	"errors"
	"log"
	"net/http"

	"github.com/sweeney/plant-irrigator/internal/metrics"
	"github.com/sweeney/plant-irrigator/internal/state"
)

// CredentialStore persists Wi-Fi credentials.
type CredentialStore interface {
	SaveCredentials(c state.Credentials) error
}

// ProvisioningServer serves the credentials form while the controller runs
// as an access point.
type ProvisioningServer struct {
	*listener

	tracker *state.Tracker
	store   CredentialStore
	saved   chan state.Credentials
}

// NewProvisioning creates the access-point server.
func NewProvisioning(addr string, tracker *state.Tracker, store CredentialStore, m *metrics.Metrics) *ProvisioningServer {
	p := &ProvisioningServer{
		listener: newListener(addr, m),
		tracker:  tracker,
		store:    store,
		saved:    make(chan state.Credentials, 1),
	}
	p.routes["/"] = p.handleForm
	p.routes["/configure"] = p.handleConfigure
	p.fallback = p.handleForm
	return p
}

// Saved delivers credentials each time they are persisted. Only the latest
// unread submission is kept.
func (p *ProvisioningServer) Saved() <-chan state.Credentials {
	return p.saved
}

func (p *ProvisioningServer) handleForm(Request) response {
	var buf bytes.Buffer
	renderForm(&buf, p.tracker.Snapshot())
	return response{code: http.StatusOK, contentType: contentHTML, body: buf.Bytes()}
}

func (p *ProvisioningServer) handleConfigure(req Request) response {
	ssid, err := req.String("ssid")
	if err != nil {
		return badRequest(err)
	}
	if ssid == "" {
		return badRequest(&paramError{name: "ssid", reason: "invalid"})
	}
	// present but possibly empty: open networks have no password
	password, err := req.String("password")
	if err != nil {
		return badRequest(err)
	}

	creds := state.Credentials{SSID: ssid, Password: password}
	if err := p.store.SaveCredentials(creds); err != nil {
		log.Printf("web: save credentials: %v", err)
		return badRequest(errors.New("could not save credentials"))
	}
	p.tracker.SetCredentials(creds)
	log.Printf("web: credentials saved for %q", ssid)

	select {
	case <-p.saved:
	default:
	}
	select {
	case p.saved <- creds:
	default:
	}

	var buf bytes.Buffer
	renderSaved(&buf, ssid)
	return response{code: http.StatusOK, contentType: contentHTML, body: buf.Bytes()}
}
