package telnet

// qState is one option side's negotiation state (RFC 1143 §7).
type qState int

const (
	qNo qState = iota
	qYes
	qWantNo
	qWantYes
)

// queueBit records whether a second request arrived while WANT_NO/WANT_YES
// was already pending.
type queueBit int

const (
	qEmpty queueBit = iota
	qOpposite
)

type side struct {
	state qState
	queue queueBit
}

// optionState holds both sides of one option's negotiation: us (do we have
// it enabled) and him (does the peer have it enabled).
type optionState struct {
	us  side
	him side
}

// Negotiator drives RFC 1143 Q-method negotiation for every option,
// delegating accept/refuse policy to registered OptionHandlers and emitting
// reply commands through send.
type Negotiator struct {
	options  map[byte]*optionState
	handlers map[byte]OptionHandler
	send     func(cmd, option byte)
}

// NewNegotiator returns a Negotiator that writes negotiation replies via
// send.
func NewNegotiator(send func(cmd, option byte)) *Negotiator {
	return &Negotiator{
		options:  make(map[byte]*optionState),
		handlers: make(map[byte]OptionHandler),
		send:     send,
	}
}

// Register installs a handler for option and, if it requests an initial
// state, kicks off negotiation for it.
func (n *Negotiator) Register(option byte, h OptionHandler) {
	n.handlers[option] = h
	st := n.stateFor(option)
	if h.InitialLocal() {
		n.requestWill(option, st)
	}
	if h.InitialRemote() {
		n.requestDo(option, st)
	}
}

func (n *Negotiator) stateFor(option byte) *optionState {
	st, ok := n.options[option]
	if !ok {
		st = &optionState{}
		n.options[option] = st
	}
	return st
}

func (n *Negotiator) handler(option byte) OptionHandler {
	if h, ok := n.handlers[option]; ok {
		return h
	}
	return refuseAllHandler{}
}

// IsRemoteEnabled reports whether the peer is currently driving option.
func (n *Negotiator) IsRemoteEnabled(option byte) bool {
	st, ok := n.options[option]
	return ok && st.him.state == qYes
}

// IsLocalEnabled reports whether we are currently driving option.
func (n *Negotiator) IsLocalEnabled(option byte) bool {
	st, ok := n.options[option]
	return ok && st.us.state == qYes
}

// ReceiveWill processes an incoming IAC WILL option (the peer proposes to
// enable option on its own side).
func (n *Negotiator) ReceiveWill(option byte) {
	st := n.stateFor(option)
	him := &st.him
	switch him.state {
	case qNo:
		if n.handler(option).AcceptWill(option) {
			him.state = qYes
			n.send(DO, option)
		} else {
			n.send(DONT, option)
		}
	case qYes:
		// steady state confirmation: never reply, or loops never terminate
	case qWantNo:
		switch him.queue {
		case qEmpty:
			him.state = qNo // peer answered DONT with WILL: treat as refusal settled
		case qOpposite:
			him.state = qYes
			him.queue = qEmpty
		}
	case qWantYes:
		switch him.queue {
		case qEmpty:
			him.state = qYes
		case qOpposite:
			him.state = qWantNo
			him.queue = qEmpty
			n.send(DONT, option)
		}
	}
}

// ReceiveWont processes an incoming IAC WONT option.
func (n *Negotiator) ReceiveWont(option byte) {
	st := n.stateFor(option)
	him := &st.him
	switch him.state {
	case qNo:
	case qYes:
		him.state = qNo
		n.send(DONT, option)
	case qWantNo:
		switch him.queue {
		case qEmpty:
			him.state = qNo
		case qOpposite:
			him.state = qWantYes
			him.queue = qEmpty
			n.send(DO, option)
		}
	case qWantYes:
		him.state = qNo
		him.queue = qEmpty
	}
}

// ReceiveDo processes an incoming IAC DO option (the peer asks us to enable
// option on our own side).
func (n *Negotiator) ReceiveDo(option byte) {
	st := n.stateFor(option)
	us := &st.us
	switch us.state {
	case qNo:
		if n.handler(option).AcceptDo(option) {
			us.state = qYes
			n.send(WILL, option)
		} else {
			n.send(WONT, option)
		}
	case qYes:
	case qWantNo:
		switch us.queue {
		case qEmpty:
			us.state = qNo
		case qOpposite:
			us.state = qYes
			us.queue = qEmpty
		}
	case qWantYes:
		switch us.queue {
		case qEmpty:
			us.state = qYes
		case qOpposite:
			us.state = qWantNo
			us.queue = qEmpty
			n.send(WONT, option)
		}
	}
}

// ReceiveDont processes an incoming IAC DONT option.
func (n *Negotiator) ReceiveDont(option byte) {
	st := n.stateFor(option)
	us := &st.us
	switch us.state {
	case qNo:
	case qYes:
		us.state = qNo
		n.send(WONT, option)
	case qWantNo:
		switch us.queue {
		case qEmpty:
			us.state = qNo
		case qOpposite:
			us.state = qWantYes
			us.queue = qEmpty
			n.send(WILL, option)
		}
	case qWantYes:
		us.state = qNo
		us.queue = qEmpty
	}
}

// RequestDo actively asks the peer to enable option (sends DO).
func (n *Negotiator) RequestDo(option byte) {
	n.requestDo(option, n.stateFor(option))
}

func (n *Negotiator) requestDo(option byte, st *optionState) {
	him := &st.him
	switch him.state {
	case qNo:
		him.state = qWantYes
		n.send(DO, option)
	case qYes:
	case qWantNo:
		if him.queue == qEmpty {
			him.queue = qOpposite
		}
	case qWantYes:
	}
}

// RequestDont actively asks the peer to disable option (sends DONT).
func (n *Negotiator) RequestDont(option byte) {
	st := n.stateFor(option)
	him := &st.him
	switch him.state {
	case qNo:
	case qYes:
		him.state = qWantNo
		n.send(DONT, option)
	case qWantNo:
	case qWantYes:
		if him.queue == qEmpty {
			him.queue = qOpposite
		}
	}
}

// RequestWill actively offers to enable option on our own side (sends
// WILL).
func (n *Negotiator) RequestWill(option byte) {
	n.requestWill(option, n.stateFor(option))
}

func (n *Negotiator) requestWill(option byte, st *optionState) {
	us := &st.us
	switch us.state {
	case qNo:
		us.state = qWantYes
		n.send(WILL, option)
	case qYes:
	case qWantNo:
		if us.queue == qEmpty {
			us.queue = qOpposite
		}
	case qWantYes:
	}
}

// RequestWont actively withdraws our own option (sends WONT).
func (n *Negotiator) RequestWont(option byte) {
	st := n.stateFor(option)
	us := &st.us
	switch us.state {
	case qNo:
	case qYes:
		us.state = qWantNo
		n.send(WONT, option)
	case qWantNo:
	case qWantYes:
		if us.queue == qEmpty {
			us.queue = qOpposite
		}
	}
}
