package ntp

import (
	"net"

	"github.com/GiacomoTortora/commons-net/internal/neterr"
)

// Message wraps a received NTP packet together with the peer address it
// arrived from, if known; Address() surfaces this.
type Message struct {
	Packet *Packet
	Peer   net.Addr
}

// TimeInfo is the immutable-after-ComputeDetails record produced when an
// NTP reply is received: the four protocol timestamps (via Message), the
// local destination time T4, and the derived round-trip delay and clock
// offset.
type TimeInfo struct {
	message          *Message
	returnTimeMillis int64
	comments         []string
	delayMillis      *int64
	offsetMillis     *int64
	detailsComputed  bool
}

// NewTimeInfo constructs a TimeInfo from a received message and the local
// destination time (T4, milliseconds since the POSIX epoch), computing
// delay/offset immediately. Passing a nil message is programmer misuse.
func NewTimeInfo(message *Message, returnTimeMillis int64) (*TimeInfo, error) {
	return newTimeInfo(message, returnTimeMillis, true)
}

// NewTimeInfoDeferred is like NewTimeInfo but delays the delay/offset
// computation until ComputeDetails is called explicitly — useful when the
// caller wants the destination timestamp captured with minimal latency.
func NewTimeInfoDeferred(message *Message, returnTimeMillis int64) (*TimeInfo, error) {
	return newTimeInfo(message, returnTimeMillis, false)
}

func newTimeInfo(message *Message, returnTimeMillis int64, computeNow bool) (*TimeInfo, error) {
	if message == nil || message.Packet == nil {
		return nil, neterr.New(neterr.InvalidArgument, "message cannot be nil", nil)
	}
	ti := &TimeInfo{
		message:          message,
		returnTimeMillis: returnTimeMillis,
	}
	if computeNow {
		ti.ComputeDetails()
	}
	return ti, nil
}

// AddComment appends a human-readable warning/diagnostic string. Comments
// are an ordered, append-only log, never an error channel.
func (ti *TimeInfo) AddComment(comment string) {
	ti.comments = append(ti.comments, comment)
}

// ComputeDetails fills in Delay and Offset from the four NTP timestamps.
// It is idempotent: the second and subsequent calls are no-ops, matching
// the original TimeInfo.computeDetails().
func (ti *TimeInfo) ComputeDetails() {
	if ti.detailsComputed {
		return
	}
	ti.detailsComputed = true

	origMillis := ti.message.Packet.OriginTime.UnixMillis()
	rcvMillis := ti.message.Packet.ReceiveTime.UnixMillis()
	xmitMillis := ti.message.Packet.TransmitTime.UnixMillis()

	if ti.message.Packet.OriginTime.IsZero() {
		ti.handleZeroOrigin(xmitMillis)
		return
	}
	ti.handleNonZeroOrigin(origMillis, rcvMillis, xmitMillis)
}

func (ti *TimeInfo) handleZeroOrigin(xmitMillis int64) {
	if !ti.message.Packet.TransmitTime.IsZero() {
		offset := xmitMillis - ti.returnTimeMillis
		ti.offsetMillis = &offset
		ti.AddComment("Error: zero orig time -- cannot compute delay")
		return
	}
	ti.AddComment("Error: zero orig time -- cannot compute delay/offset")
}

func (ti *TimeInfo) handleNonZeroOrigin(origMillis, rcvMillis, xmitMillis int64) {
	rcvZero := ti.message.Packet.ReceiveTime.IsZero()
	xmitZero := ti.message.Packet.TransmitTime.IsZero()

	if rcvZero || xmitZero {
		ti.handleZeroReceiveOrTransmit(origMillis, rcvMillis, xmitMillis, rcvZero, xmitZero)
		return
	}
	ti.handleNormal(origMillis, rcvMillis, xmitMillis)
}

func (ti *TimeInfo) handleZeroReceiveOrTransmit(origMillis, rcvMillis, xmitMillis int64, rcvZero, xmitZero bool) {
	ti.AddComment("Warning: zero rcvNtpTime or xmitNtpTime")

	if origMillis > ti.returnTimeMillis {
		ti.AddComment("Error: OrigTime > DestRcvTime")
	} else {
		delay := ti.returnTimeMillis - origMillis
		ti.delayMillis = &delay
	}

	switch {
	case !rcvZero:
		offset := rcvMillis - origMillis
		ti.offsetMillis = &offset
	case !xmitZero:
		offset := xmitMillis - ti.returnTimeMillis
		ti.offsetMillis = &offset
	}
}

func (ti *TimeInfo) handleNormal(origMillis, rcvMillis, xmitMillis int64) {
	delay := ti.returnTimeMillis - origMillis

	if xmitMillis < rcvMillis {
		ti.AddComment("Error: xmitTime < rcvTime")
	} else {
		delta := xmitMillis - rcvMillis
		delay = ti.adjustDelay(delay, delta)
	}
	ti.delayMillis = &delay

	if origMillis > ti.returnTimeMillis {
		ti.AddComment("Error: OrigTime > DestRcvTime")
	}
	offset := (rcvMillis - origMillis + xmitMillis - ti.returnTimeMillis) / 2
	ti.offsetMillis = &offset
}

// adjustDelay subtracts the server's own processing time (delta = T3-T2)
// from the raw round-trip delay, with the same clock-tick-quantization
// tolerance as the original adjustDelayValueMillis: a 1ms overshoot clamps
// to zero delay with an informational comment, anything larger is left
// uncorrected with a warning.
func (ti *TimeInfo) adjustDelay(delay, delta int64) int64 {
	switch {
	case delta <= delay:
		return delay - delta
	case delta-delay == 1:
		if delay != 0 {
			ti.AddComment("Info: processing time > total network time by 1 ms -> assume zero delay")
			return 0
		}
		return delay
	default:
		ti.AddComment("Warning: processing time > total network time")
		return delay
	}
}

// Delay returns the computed round-trip network delay in milliseconds, and
// whether it could be computed at all.
func (ti *TimeInfo) Delay() (int64, bool) {
	if ti.delayMillis == nil {
		return 0, false
	}
	return *ti.delayMillis, true
}

// Offset returns the computed clock offset in milliseconds (positive means
// the local clock is behind the remote clock), and whether it could be
// computed at all.
func (ti *TimeInfo) Offset() (int64, bool) {
	if ti.offsetMillis == nil {
		return 0, false
	}
	return *ti.offsetMillis, true
}

// Message returns the received NTP message.
func (ti *TimeInfo) Message() *Message { return ti.message }

// ReturnTime returns T4, the local destination receive time in
// milliseconds since the POSIX epoch.
func (ti *TimeInfo) ReturnTime() int64 { return ti.returnTimeMillis }

// Comments returns the ordered list of warnings recorded while computing
// details. It is nil until ComputeDetails has run at least once.
func (ti *TimeInfo) Comments() []string { return ti.comments }

// Address returns the peer address the message was received from, or nil
// if the message was constructed without one (e.g. in tests).
func (ti *TimeInfo) Address() net.Addr {
	if ti.message == nil {
		return nil
	}
	return ti.message.Peer
}
