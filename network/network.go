package network

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	TypeWiFi     = "Wi-Fi"
	TypeMobile   = "Mobile"
	TypeEthernet = "Ethernet"
	TypeUnknown  = "Unknown"
	TypeNone     = "No network"
)

const DefaultProbeURL = "http://connectivitycheck.gstatic.com/generate_204"

// Status is the connectivity snapshot taken before each alert.
type Status struct {
	// Online is true only when the internet was actually reached.
	Online bool   `json:"online"`
	Type   string `json:"type"`
}

type Checker interface {
	Check(ctx context.Context) Status
}

type ProbeConfig struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Interface is the part of a network interface type detection looks at.
type Interface struct {
	Name  string
	Up    bool
	Addrs int
}

// ProbeChecker validates connectivity with a request to a probe URL and
// derives the transport type from the active interface names.
type ProbeChecker struct {
	url        string
	client     *http.Client
	interfaces func() ([]Interface, error)
}

func NewProbeChecker(config *ProbeConfig) *ProbeChecker {
	url, timeout := DefaultProbeURL, 3*time.Second
	if config != nil {
		if config.URL != "" {
			url = config.URL
		}
		if config.Timeout > 0 {
			timeout = config.Timeout
		}
	}
	return &ProbeChecker{
		url:        url,
		client:     &http.Client{Timeout: timeout},
		interfaces: systemInterfaces,
	}
}

/**
 * Check reports whether a validated data network is available.
 * The probe must answer 2xx; captive portals that redirect or rewrite the
 * response count as offline.
 *
 * @param ctx Bounds the probe request
 * @return Status Online flag and transport type
 */
func (p *ProbeChecker) Check(ctx context.Context) Status {
	kind := p.transport()
	if kind == TypeNone {
		return Status{Online: false, Type: TypeNone}
	}
	return Status{Online: p.probe(ctx), Type: kind}
}

func (p *ProbeChecker) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	client := *p.client
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (p *ProbeChecker) transport() string {
	ifaces, err := p.interfaces()
	if err != nil {
		return TypeUnknown
	}
	return Classify(ifaces)
}

// Classify picks the transport type of the first usable interface, preferring
// Wi-Fi over mobile over ethernet.
func Classify(ifaces []Interface) string {
	found := map[string]bool{}
	active := false
	for _, iface := range ifaces {
		if !iface.Up || iface.Addrs == 0 {
			continue
		}
		active = true
		found[typeOf(iface.Name)] = true
	}
	if !active {
		return TypeNone
	}
	for _, t := range []string{TypeWiFi, TypeMobile, TypeEthernet} {
		if found[t] {
			return t
		}
	}
	return TypeUnknown
}

var prefixes = []struct {
	prefix string
	kind   string
}{
	{"wlan", TypeWiFi},
	{"wl", TypeWiFi},
	{"wifi", TypeWiFi},
	{"rmnet", TypeMobile},
	{"ccmni", TypeMobile},
	{"wwan", TypeMobile},
	{"ppp", TypeMobile},
	{"eth", TypeEthernet},
	{"en", TypeEthernet},
}

func typeOf(name string) string {
	name = strings.ToLower(name)
	for _, p := range prefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.kind
		}
	}
	return TypeUnknown
}

func systemInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		out = append(out, Interface{
			Name:  iface.Name,
			Up:    iface.Flags&net.FlagUp != 0,
			Addrs: len(addrs),
		})
	}
	return out, nil
}

// StaticChecker reports a fixed status. Used for forced offline or online modes.
type StaticChecker Status

func (s StaticChecker) Check(context.Context) Status {
	st := Status(s)
	if st.Type == "" {
		if st.Online {
			st.Type = TypeUnknown
		} else {
			st.Type = TypeNone
		}
	}
	return st
}
