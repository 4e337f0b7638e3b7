package nl80211

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/prometheus/client_golang/prometheus"
)

// Proxy owns one generic netlink socket and the nl80211 family state
// resolved over it. All request/response traffic is funnelled through a
// single lock, so a proxy may be shared by the synchronous and asynchronous
// paths at once; replies are additionally matched to their request by
// sequence number instead of trusting read order.
//
// The zero value is unusable: a proxy starts handling requests only after
// a successful Init and never goes back. A failed Init releases the socket
// and leaves the instance permanently dead, so the root cause isn't masked
// by a trail of secondary errors.
type Proxy struct {
	conf Config
	m    *metrics

	// mu guards the socket: one request/response exchange at a time.
	mu   sync.Mutex
	conn Conn
	seq  atomic.Uint32

	initialized atomic.Bool
	closed      atomic.Bool

	familyID uint16
	groups   map[string]uint32

	asyncCh   chan asyncCall
	asyncDone chan struct{}
}

// AsyncResult carries the outcome of an ExecuteAsync call.
type AsyncResult struct {
	Responses []*Message
	Err       error
}

type asyncCall struct {
	req *Message
	res chan AsyncResult
}

// NewProxy builds a proxy that will dial its own socket on Init. A nil
// config selects the defaults.
func NewProxy(conf *Config) *Proxy {
	if conf == nil {
		conf = &DefaultConfig
	}
	return &Proxy{
		conf:      *conf,
		m:         newMetrics(),
		asyncCh:   make(chan asyncCall),
		asyncDone: make(chan struct{}),
	}
}

// NewProxyWithConn builds a proxy over an already-open channel. Init will
// skip dialing. This is how tests script kernel behaviour.
func NewProxyWithConn(conn Conn) *Proxy {
	p := NewProxy(nil)
	p.conn = conn
	return p
}

// RegisterMetrics attaches the proxy's counters to a registry. Call at most
// once per registry.
func (p *Proxy) RegisterMetrics(reg prometheus.Registerer) error {
	return p.m.register(reg)
}

// Init opens the socket if needed and resolves the nl80211 family: numeric
// id plus the full multicast group mapping. Every required group must be
// present; a kernel that can't name scan, regulatory and mlme channels is
// not one we can monitor, so resolution fails as a whole.
func (p *Proxy) Init() error {
	if p.closed.Load() {
		return ErrClosed
	}
	if p.initialized.Load() {
		return nil
	}

	if p.conn == nil {
		conn, err := dial(p.conf)
		if err != nil {
			return fmt.Errorf("couldn't open the netlink channel: %w", err)
		}
		p.conn = conn
	}

	if err := p.resolveFamily(); err != nil {
		// Release the socket on the way out: a half-initialised proxy
		// must not leak its file descriptor.
		p.conn.Close()
		p.conn = nil
		return err
	}

	p.initialized.Store(true)
	p.m.FamilyID.Set(float64(p.familyID))
	go p.worker()

	slog.Debug("resolved the nl80211 family", "familyID", p.familyID, "groups", p.groups)
	return nil
}

func (p *Proxy) nextSequence() uint32 {
	// Wraps with uint32 arithmetic; the kernel only echoes the value back.
	return p.seq.Add(1)
}

func (p *Proxy) resolveFamily() error {
	req := NewMessage(CTRL_CMD_GETFAMILY, GENL_ID_CTRL, netlink.Request, p.nextSequence())
	req.AddAttribute(StringAttr(CTRL_ATTR_FAMILY_NAME, NL80211_GENL_NAME))

	resp, err := p.ExecuteOne(req)
	if err != nil {
		return fmt.Errorf("family resolution failed: %w", err)
	}
	if err := resp.Verify(CTRL_CMD_NEWFAMILY, CTRL_ATTR_FAMILY_ID, CTRL_ATTR_MCAST_GROUPS); err != nil {
		return fmt.Errorf("family resolution failed: %w", err)
	}

	familyID, ok := resp.Uint16Attribute(CTRL_ATTR_FAMILY_ID)
	if !ok {
		return fmt.Errorf("%w: family id attribute is not a u16", ErrUnexpectedResponse)
	}

	groupsAttr, _ := resp.Attribute(CTRL_ATTR_MCAST_GROUPS)
	groups := parseMulticastGroups(groupsAttr)
	for _, name := range requiredMulticastGroups {
		if _, ok := groups[name]; !ok {
			return fmt.Errorf("%w: multicast group %q is missing, got %v",
				ErrUnexpectedResponse, name, groups)
		}
	}

	p.familyID = familyID
	p.groups = groups
	return nil
}

// parseMulticastGroups unpacks the nested CTRL_ATTR_MCAST_GROUPS attribute
// into a name -> id mapping. The expected structure is one nested entry per
// group, each holding a name and an id attribute. Entries missing either
// are skipped rather than failing the lot; completeness is enforced by the
// caller against the groups it actually needs.
func parseMulticastGroups(root netlink.Attribute) map[string]uint32 {
	groups := make(map[string]uint32)

	entries, err := parseNestedAttributes(root)
	if err != nil {
		slog.Debug("couldn't parse the multicast groups attribute", "err", err)
		return groups
	}

	for _, entry := range entries {
		inner, err := parseNestedAttributes(entry)
		if err != nil {
			continue
		}
		nameAttr, ok := inner[CTRL_ATTR_MCAST_GRP_NAME]
		if !ok || len(nameAttr.Data) == 0 {
			continue
		}
		idAttr, ok := inner[CTRL_ATTR_MCAST_GRP_ID]
		if !ok || len(idAttr.Data) != 4 {
			continue
		}
		groups[nlenc.String(nameAttr.Data)] = nlenc.Uint32(idAttr.Data)
	}
	return groups
}

// NewRequest builds an nl80211 data request: resolved family id as the
// message type, a fresh sequence number and the request flag set.
func (p *Proxy) NewRequest(command uint8, attrs ...netlink.Attribute) (*Message, error) {
	if !p.initialized.Load() {
		return nil, ErrNotInitialized
	}
	req := NewMessage(command, p.familyID, netlink.Request, p.nextSequence())
	for _, a := range attrs {
		req.AddAttribute(a)
	}
	return req, nil
}

// Execute writes msg to the kernel and parses everything the next bounded
// read returns. All messages must parse and every one must echo the
// request's sequence number; anything else fails the exchange as a whole.
// There is no retry at this layer: whether a failed request is worth
// repeating is the caller's call.
func (p *Proxy) Execute(msg *Message) ([]*Message, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrUnexpectedResponse)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.closed.Load() {
		return nil, ErrNotInitialized
	}

	b, err := msg.MarshalBinary()
	if err != nil {
		return nil, err
	}

	p.m.RequestsTotal.Inc()
	if err := p.conn.Send(b); err != nil {
		p.m.TransportErrorsTotal.Inc()
		slog.Debug("couldn't send the netlink message", "err", err)
		return nil, err
	}
	p.m.BytesSentTotal.Add(float64(len(b)))

	responses, err := p.receiveLocked()
	if err != nil {
		return nil, err
	}
	for _, resp := range responses {
		if resp.Header.Sequence != msg.Header.Sequence {
			return nil, fmt.Errorf("%w: reply sequence %d doesn't match request sequence %d",
				ErrUnexpectedResponse, resp.Header.Sequence, msg.Header.Sequence)
		}
	}
	return responses, nil
}

// ExecuteOne is Execute for commands that answer with exactly one message.
// Zero or several replies are an error, never a silent truncation.
func (p *Proxy) ExecuteOne(msg *Message) (*Message, error) {
	responses, err := p.Execute(msg)
	if err != nil {
		return nil, err
	}
	if len(responses) != 1 {
		return nil, fmt.Errorf("%w: got %d responses, expected exactly one",
			ErrUnexpectedResponse, len(responses))
	}
	return responses[0], nil
}

// ExecuteAsync hands msg to the proxy's worker goroutine and returns a
// channel the result will be delivered on. Concurrent calls are served
// strictly in post order; each returned channel receives exactly one value
// and is then closed.
func (p *Proxy) ExecuteAsync(msg *Message) (<-chan AsyncResult, error) {
	if !p.initialized.Load() {
		return nil, ErrNotInitialized
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrUnexpectedResponse)
	}

	call := asyncCall{req: msg, res: make(chan AsyncResult, 1)}
	select {
	case p.asyncCh <- call:
		return call.res, nil
	case <-p.asyncDone:
		return nil, ErrClosed
	}
}

func (p *Proxy) worker() {
	for {
		select {
		case call := <-p.asyncCh:
			responses, err := p.Execute(call.req)
			call.res <- AsyncResult{Responses: responses, Err: err}
			close(call.res)
		case <-p.asyncDone:
			return
		}
	}
}

// Receive performs one bounded read without sending anything first. Meant
// for draining multicast notifications after JoinMulticastGroup; solicited
// traffic should go through Execute.
func (p *Proxy) Receive() ([]*Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.closed.Load() {
		return nil, ErrNotInitialized
	}
	return p.receiveLocked()
}

func (p *Proxy) receiveLocked() ([]*Message, error) {
	b, err := p.conn.Receive()
	if err != nil {
		p.m.TransportErrorsTotal.Inc()
		slog.Debug("couldn't receive netlink messages", "err", err)
		return nil, err
	}
	p.m.BytesReceivedTotal.Add(float64(len(b)))

	responses, err := ParseMessages(b)
	if err != nil {
		p.m.DecodeErrorsTotal.Inc()
		slog.Debug("couldn't parse the receive buffer", "err", err, "len", len(b))
		return nil, err
	}
	p.m.ResponsesTotal.Add(float64(len(responses)))
	return responses, nil
}

// JoinMulticastGroup subscribes the socket to one of the groups resolved at
// Init, by name.
func (p *Proxy) JoinMulticastGroup(name string) error {
	if !p.initialized.Load() {
		return ErrNotInitialized
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		return ErrClosed
	}
	if p.conn == nil {
		return ErrNotInitialized
	}

	id, ok := p.groups[name]
	if !ok {
		return fmt.Errorf("unknown multicast group %q, have %v", name, p.groups)
	}
	return p.conn.JoinGroup(id)
}

// FamilyID returns the resolved nl80211 family id, or 0 before Init.
func (p *Proxy) FamilyID() uint16 {
	return p.familyID
}

// MulticastGroups returns a copy of the resolved group name -> id mapping.
func (p *Proxy) MulticastGroups() map[string]uint32 {
	groups := make(map[string]uint32, len(p.groups))
	for name, id := range p.groups {
		groups[name] = id
	}
	return groups
}

// Close releases the socket and stops the async worker. In-flight requests
// finish first; everything after fails with ErrClosed or ErrNotInitialized.
func (p *Proxy) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	close(p.asyncDone)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
