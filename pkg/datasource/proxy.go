package datasource

type proxyState int

const (
	stateUnknown proxyState = iota
	stateData
	stateNoData
)

// Proxy serves a primary source, or a fallback when the primary is missing or
// empty. The choice is made on the first Data call and never revisited.
type Proxy struct {
	state    proxyState
	primary  DataSource
	fallback DataSource
}

// NewProxy accepts a nil primary.
func NewProxy(primary, fallback DataSource) *Proxy {
	return &Proxy{primary: primary, fallback: fallback}
}

func (p *Proxy) active() DataSource {
	if p.state == stateUnknown {
		p.state = stateNoData
		if p.primary != nil && len(p.primary.Data()) > 0 {
			p.state = stateData
		}
	}
	if p.state == stateData {
		return p.primary
	}
	return p.fallback
}

func (p *Proxy) Data() []byte { return p.active().Data() }

func (p *Proxy) Release() bool {
	released := p.fallback.Release()
	if p.primary != nil {
		released = p.primary.Release() && released
	}
	return released
}

func (p *Proxy) Type() string     { return p.active().Type() }
func (p *Proxy) HTTPStatus() int  { return p.active().HTTPStatus() }
func (p *Proxy) Encoding() string { return p.active().Encoding() }

// UsingFallback reports whether the fallback was selected.
func (p *Proxy) UsingFallback() bool {
	p.active()
	return p.state == stateNoData
}
