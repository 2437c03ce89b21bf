package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func checkerFor(url string, ifaces ...Interface) *ProbeChecker {
	p := NewProbeChecker(&ProbeConfig{URL: url})
	p.interfaces = func() ([]Interface, error) { return ifaces, nil }
	return p
}

func TestProbeChecker(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ok.Close()

	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://login.portal/", http.StatusFound)
	}))
	defer portal.Close()

	wifi := Interface{Name: "wlan0", Up: true, Addrs: 1}

	assert.Equal(t, Status{Online: true, Type: TypeWiFi}, checkerFor(ok.URL, wifi).Check(context.Background()))
	assert.Equal(t, Status{Online: false, Type: TypeWiFi}, checkerFor(portal.URL, wifi).Check(context.Background()))
	assert.Equal(t, Status{Online: false, Type: TypeNone}, checkerFor(ok.URL).Check(context.Background()))

	ok.Close()
	assert.False(t, checkerFor(ok.URL, wifi).Check(context.Background()).Online)
}

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		name   string
		ifaces []Interface
		want   string
	}{
		{"none", nil, TypeNone},
		{"down", []Interface{{Name: "wlan0", Up: false, Addrs: 1}}, TypeNone},
		{"no address", []Interface{{Name: "eth0", Up: true}}, TypeNone},
		{"mobile", []Interface{{Name: "rmnet_data0", Up: true, Addrs: 2}}, TypeMobile},
		{"ethernet", []Interface{{Name: "enp3s0", Up: true, Addrs: 1}}, TypeEthernet},
		{"wifi preferred", []Interface{{Name: "eth0", Up: true, Addrs: 1}, {Name: "wlp2s0", Up: true, Addrs: 1}}, TypeWiFi},
		{"unknown", []Interface{{Name: "tun0", Up: true, Addrs: 1}}, TypeUnknown},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.ifaces))
		})
	}
}

func TestStaticChecker(t *testing.T) {
	assert.Equal(t, Status{Online: false, Type: TypeNone}, StaticChecker{}.Check(context.Background()))
	assert.Equal(t, Status{Online: true, Type: TypeUnknown}, StaticChecker{Online: true}.Check(context.Background()))
	assert.Equal(t, Status{Online: true, Type: TypeMobile}, StaticChecker{Online: true, Type: TypeMobile}.Check(context.Background()))
}
