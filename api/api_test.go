package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/wlanlink/wlanlink/nl80211"
	"github.com/wlanlink/wlanlink/wifi"
)

func init() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelError,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time.
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Remove the directory from the source's filename.
			if a.Key == slog.SourceKey {
				source := a.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return a
		},
	}))
	slog.SetDefault(logger)
}

const testFamilyID uint16 = 28

// fakeConn implements nl80211.Conn with just enough of the control
// family to get a proxy initialised, everything else goes to next.
type fakeConn struct {
	next    func(req *nl80211.Message) ([]*nl80211.Message, error)
	pending [][]byte
}

func (c *fakeConn) Send(b []byte) error {
	msgs, err := nl80211.ParseMessages(b)
	if err != nil {
		return err
	}
	for _, req := range msgs {
		var resps []*nl80211.Message
		if req.GenlHeader.Command == nl80211.CTRL_CMD_GETFAMILY {
			resps = []*nl80211.Message{familyResponse(req.Header.Sequence)}
		} else if resps, err = c.next(req); err != nil {
			return err
		}

		buf := []byte{}
		for _, resp := range resps {
			rb, err := resp.MarshalBinary()
			if err != nil {
				return err
			}
			buf = append(buf, rb...)
		}
		c.pending = append(c.pending, buf)
	}
	return nil
}

func (c *fakeConn) Receive() ([]byte, error) {
	if len(c.pending) == 0 {
		return nil, errors.New("resource temporarily unavailable")
	}
	b := c.pending[0]
	c.pending = c.pending[1:]
	return b, nil
}

func (c *fakeConn) JoinGroup(id uint32) error { return nil }
func (c *fakeConn) Close() error              { return nil }

func packAttrs(attrs ...netlink.Attribute) []byte {
	b := []byte{}
	for _, a := range attrs {
		aligned := (4 + len(a.Data) + 3) &^ 3
		buf := make([]byte, aligned)
		nlenc.PutUint16(buf[0:2], uint16(4+len(a.Data)))
		nlenc.PutUint16(buf[2:4], a.Type)
		copy(buf[4:], a.Data)
		b = append(b, buf...)
	}
	return b
}

func groupEntry(name string, id uint32) []byte {
	return packAttrs(
		nl80211.StringAttr(nl80211.CTRL_ATTR_MCAST_GRP_NAME, name),
		nl80211.Uint32Attr(nl80211.CTRL_ATTR_MCAST_GRP_ID, id),
	)
}

func familyResponse(seq uint32) *nl80211.Message {
	resp := nl80211.NewMessage(nl80211.CTRL_CMD_NEWFAMILY, nl80211.GENL_ID_CTRL, 0, seq)
	resp.AddAttribute(nl80211.Uint16Attr(nl80211.CTRL_ATTR_FAMILY_ID, testFamilyID))
	resp.AddAttribute(netlink.Attribute{
		Type: nl80211.CTRL_ATTR_MCAST_GROUPS,
		Data: packAttrs(
			netlink.Attribute{Type: 1, Data: groupEntry(nl80211.NL80211_MULTICAST_GROUP_SCAN, 3)},
			netlink.Attribute{Type: 2, Data: groupEntry(nl80211.NL80211_MULTICAST_GROUP_REG, 4)},
			netlink.Attribute{Type: 3, Data: groupEntry(nl80211.NL80211_MULTICAST_GROUP_MLME, 5)},
		),
	})
	return resp
}

func interfaceDump(seq uint32) []*nl80211.Message {
	msg := nl80211.NewMessage(wifi.CMD_NEW_INTERFACE, testFamilyID, netlink.Multi, seq)
	msg.AddAttribute(nl80211.Uint32Attr(wifi.ATTR_IFINDEX, 3))
	msg.AddAttribute(nl80211.StringAttr(wifi.ATTR_IFNAME, "wlan0"))
	msg.AddAttribute(nl80211.Uint32Attr(wifi.ATTR_IFTYPE, uint32(wifi.InterfaceTypeStation)))
	msg.AddAttribute(netlink.Attribute{Type: wifi.ATTR_MAC, Data: []byte{0x02, 0, 0, 0, 0, 0x0a}})
	done := nl80211.NewMessage(0, uint16(netlink.Done), netlink.Multi, seq)
	return []*nl80211.Message{msg, done}
}

// newTestServer wires a Server to a proxy backed by a fake connection
// and a throwaway procfs with one wireless entry.
func newTestServer(t *testing.T, next func(req *nl80211.Message) ([]*nl80211.Message, error)) *Server {
	t.Helper()

	proxy := nl80211.NewProxyWithConn(&fakeConn{next: next})
	if err := proxy.Init(); err != nil {
		t.Fatalf("couldn't initialise the proxy: %v", err)
	}
	t.Cleanup(func() { proxy.Close() })

	registry := prometheus.NewRegistry()
	if err := proxy.RegisterMetrics(registry); err != nil {
		t.Fatalf("couldn't register the metrics: %v", err)
	}

	procMount := t.TempDir()
	if err := os.MkdirAll(filepath.Join(procMount, "net"), 0o755); err != nil {
		t.Fatalf("couldn't create the fake procfs: %v", err)
	}
	wireless := "Inter-| sta-|   Quality        |   Discarded packets               | Missed | WE\n" +
		" face | tus | link level noise |  nwid  crypt   frag  retry   misc | beacon | 22\n" +
		" wlan0: 0000   61.  -49.  -256        0      0      0      3      0        2\n"
	if err := os.WriteFile(filepath.Join(procMount, "net", "wireless"), []byte(wireless), 0o644); err != nil {
		t.Fatalf("couldn't create the fake procfs: %v", err)
	}

	conf := DefaultConfig
	conf.ProcMount = procMount
	s := New(&conf, wifi.NewClient(proxy), registry)
	if err := s.Init(); err != nil {
		t.Fatalf("couldn't initialise the server: %v", err)
	}
	return s
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, req)
	return rec
}

func compileSchema(t *testing.T, schema string) *jsonschema.Schema {
	t.Helper()
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schema))
	if err != nil {
		t.Fatalf("couldn't unmarshal the schema: %v", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		t.Fatalf("couldn't add the schema resource: %v", err)
	}
	sch, err := c.Compile("schema.json")
	if err != nil {
		t.Fatalf("couldn't compile the schema: %v", err)
	}
	return sch
}

func validate(t *testing.T, sch *jsonschema.Schema, body []byte) {
	t.Helper()
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("the endpoint returned invalid JSON: %v", err)
	}
	if err := sch.Validate(inst); err != nil {
		t.Errorf("the response doesn't match its schema: %v", err)
	}
}

func TestAPIFamily(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(t, s, "/api/v1/family")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}

	sch := compileSchema(t, `{
		"type": "object",
		"required": ["name", "id", "multicastGroups"],
		"properties": {
			"name": {"const": "nl80211"},
			"id": {"type": "integer", "minimum": 1},
			"multicastGroups": {
				"type": "object",
				"required": ["scan", "regulatory", "mlme"],
				"additionalProperties": {"type": "integer"}
			}
		}
	}`)
	validate(t, sch, rec.Body.Bytes())
}

func TestAPIInterfaces(t *testing.T) {
	s := newTestServer(t, func(req *nl80211.Message) ([]*nl80211.Message, error) {
		return interfaceDump(req.Header.Sequence), nil
	})

	rec := get(t, s, "/api/v1/interfaces")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}

	sch := compileSchema(t, `{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["ifIndex", "ifName", "mac", "phy", "type", "frequencyMHz"],
			"properties": {
				"ifIndex": {"type": "integer"},
				"ifName": {"type": "string"},
				"mac": {"type": "string"},
				"type": {"type": "string"}
			}
		}
	}`)
	validate(t, sch, rec.Body.Bytes())

	// The lean rendition only carries the interface's identity.
	rec = get(t, s, "/api/v1/interfaces?verbosity=lean")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); strings.Contains(body, "mac") {
		t.Errorf("the lean rendition leaked full-verbosity fields: %s", body)
	}
}

func TestAPIInterfacesError(t *testing.T) {
	s := newTestServer(t, func(req *nl80211.Message) ([]*nl80211.Message, error) {
		return nil, errors.New("no carrier")
	})

	rec := get(t, s, "/api/v1/interfaces")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Errorf("the error response carries no error message: %s", rec.Body.String())
	}
}

func TestAPIQuality(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(t, s, "/api/v1/quality")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}

	sch := compileSchema(t, `{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["ifName", "link", "level", "noise"],
			"properties": {
				"ifName": {"const": "wlan0"},
				"link": {"const": 61},
				"discardedRetry": {"const": 3},
				"missedBeacons": {"const": 2}
			}
		}
	}`)
	validate(t, sch, rec.Body.Bytes())
}

func TestAPIMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	for _, metric := range []string{"nl80211_requests_total", "nl80211_family_id"} {
		if !strings.Contains(rec.Body.String(), metric) {
			t.Errorf("the exposition is missing %s", metric)
		}
	}
}

func TestAPIRoot(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(t, s, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "/api/v1/family") {
		t.Errorf("the root listing is missing routes: %s", rec.Body.String())
	}
}

func TestConfigUnmarshalYAML(t *testing.T) {
	conf := Config{}
	if err := yaml.Unmarshal([]byte("bindPort: 8888\n"), &conf); err != nil {
		t.Fatalf("couldn't unmarshal the configuration: %v", err)
	}

	want := DefaultConfig
	want.BindPort = 8888
	if diff := cmp.Diff(want, conf); diff != "" {
		t.Errorf("defaulting mismatch (-want +got):\n%s", diff)
	}
}
