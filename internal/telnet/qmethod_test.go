package telnet_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GiacomoTortora/commons-net/internal/telnet"
)

type acceptAllHandler struct{}

func (acceptAllHandler) InitialLocal() bool          { return false }
func (acceptAllHandler) InitialRemote() bool         { return false }
func (acceptAllHandler) AcceptWill(byte) bool        { return true }
func (acceptAllHandler) AcceptDo(byte) bool          { return true }
func (acceptAllHandler) AnswerSubnegotiation([]byte) {}
func (acceptAllHandler) StartSubnegotiationLocal()   {}

var _ = Describe("Negotiator", func() {
	It("never replies to a WILL repeated once steady state is reached", func() {
		var sent [][2]byte
		n := telnet.NewNegotiator(func(cmd, option byte) { sent = append(sent, [2]byte{cmd, option}) })
		n.Register(telnet.Echo, acceptAllHandler{})

		n.ReceiveWill(telnet.Echo)
		Expect(n.IsRemoteEnabled(telnet.Echo)).To(BeTrue())
		Expect(sent).To(Equal([][2]byte{{telnet.DO, telnet.Echo}}))

		sent = nil
		n.ReceiveWill(telnet.Echo) // peer repeats WILL; steady state must not reply again
		Expect(sent).To(BeEmpty())
	})

	It("sends DONT for an option with no registered handler", func() {
		var sent [][2]byte
		n := telnet.NewNegotiator(func(cmd, option byte) { sent = append(sent, [2]byte{cmd, option}) })
		// No handler registered for NAWS: refuseAllHandler refuses.
		n.ReceiveWill(telnet.NAWS)
		Expect(n.IsRemoteEnabled(telnet.NAWS)).To(BeFalse())
		Expect(sent).To(Equal([][2]byte{{telnet.DONT, telnet.NAWS}}))
	})

	It("queues a crossing opposite request until the pending one settles", func() {
		var sent [][2]byte
		n := telnet.NewNegotiator(func(cmd, option byte) { sent = append(sent, [2]byte{cmd, option}) })
		n.Register(telnet.SGA, acceptAllHandler{})

		n.RequestWill(telnet.SGA)
		Expect(sent).To(Equal([][2]byte{{telnet.WILL, telnet.SGA}}))

		// Before the peer answers, we change our mind and ask to turn it
		// back off; RFC 1143 queues this as the opposite of the pending
		// request rather than sending a second command immediately.
		n.RequestWont(telnet.SGA)
		Expect(sent).To(HaveLen(1))

		n.ReceiveDo(telnet.SGA) // peer agrees to the original WILL; queued WONT should now fire
		Expect(sent).To(HaveLen(2))
		Expect(sent[1]).To(Equal([2]byte{telnet.WONT, telnet.SGA}))
	})

	It("applies a queued opposite request once the original answer arrives", func() {
		var sent [][2]byte
		n := telnet.NewNegotiator(func(cmd, option byte) { sent = append(sent, [2]byte{cmd, option}) })
		n.Register(telnet.TType, acceptAllHandler{})

		n.RequestDo(telnet.TType)
		Expect(sent).To(Equal([][2]byte{{telnet.DO, telnet.TType}}))

		n.RequestDont(telnet.TType) // queued: WANT_YES + opposite
		Expect(sent).To(HaveLen(1))

		n.ReceiveWill(telnet.TType) // peer agrees to the original request
		Expect(sent).To(HaveLen(2))
		Expect(sent[1]).To(Equal([2]byte{telnet.DONT, telnet.TType}))
		Expect(n.IsRemoteEnabled(telnet.TType)).To(BeFalse())
	})
})
