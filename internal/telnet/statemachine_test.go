package telnet_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GiacomoTortora/commons-net/internal/telnet"
)

func newTestMachine() (*telnet.StateMachine, *bytes.Buffer, *[][2]byte) {
	var data bytes.Buffer
	commands := make([][2]byte, 0)
	neg := telnet.NewNegotiator(func(cmd, option byte) {
		commands = append(commands, [2]byte{cmd, option})
	})
	sm := telnet.NewStateMachine(
		func(b byte) { data.WriteByte(b) },
		neg,
		func(byte) {},
		func(byte, []byte) {},
		func() bool { return false },
	)
	return sm, &data, &commands
}

func feed(sm *telnet.StateMachine, bs ...byte) {
	for _, b := range bs {
		sm.Feed(b)
	}
}

var _ = Describe("StateMachine data handling", func() {
	It("passes plain data through verbatim", func() {
		sm, data, _ := newTestMachine()
		feed(sm, 'h', 'e', 'l', 'l', 'o')
		Expect(data.String()).To(Equal("hello"))
	})

	It("yields a single byte for an escaped IAC", func() {
		sm, data, _ := newTestMachine()
		feed(sm, 'a', telnet.IAC, telnet.IAC, 'b')
		Expect(data.Bytes()).To(Equal([]byte{'a', 0xFF, 'b'}))
	})

	It("never delivers an IAC command byte as data", func() {
		var seen byte
		var data bytes.Buffer
		neg := telnet.NewNegotiator(func(byte, byte) {})
		sm := telnet.NewStateMachine(
			func(b byte) { data.WriteByte(b) },
			neg,
			func(cmd byte) { seen = cmd },
			func(byte, []byte) {},
			func() bool { return false },
		)
		feed(sm, 'x', telnet.IAC, telnet.AYT, 'y')
		Expect(data.String()).To(Equal("xy"))
		Expect(seen).To(Equal(telnet.AYT))
	})

	It("collapses CRLF to a bare LF", func() {
		sm, data, _ := newTestMachine()
		feed(sm, 'a', '\r', '\n', 'b')
		Expect(data.String()).To(Equal("a\nb"))
	})

	It("yields a bare CR for CR NUL", func() {
		sm, data, _ := newTestMachine()
		feed(sm, 'a', '\r', 0, 'b')
		Expect(data.Bytes()).To(Equal([]byte{'a', '\r', 'b'}))
	})
})

var _ = Describe("StateMachine subnegotiation handling", func() {
	It("delivers the option and payload separately from data", func() {
		var gotOption byte
		var gotData []byte
		var data bytes.Buffer
		neg := telnet.NewNegotiator(func(byte, byte) {})
		sm := telnet.NewStateMachine(
			func(b byte) { data.WriteByte(b) },
			neg,
			func(byte) {},
			func(option byte, d []byte) { gotOption = option; gotData = append([]byte(nil), d...) },
			func() bool { return false },
		)
		feed(sm, telnet.IAC, telnet.SB, telnet.TType, telnet.IS, 1, telnet.IAC, telnet.SE)
		Expect(gotOption).To(Equal(telnet.TType))
		Expect(gotData).To(Equal([]byte{telnet.IS, 1}))
		Expect(data.Len()).To(Equal(0))
	})

	It("unescapes a literal IAC within the subnegotiation payload", func() {
		var gotData []byte
		var data bytes.Buffer
		neg := telnet.NewNegotiator(func(byte, byte) {})
		sm := telnet.NewStateMachine(
			func(b byte) { data.WriteByte(b) },
			neg,
			func(byte) {},
			func(option byte, d []byte) { gotData = append([]byte(nil), d...) },
			func() bool { return false },
		)
		feed(sm, telnet.IAC, telnet.SB, telnet.TType, 0xFF, 0xFF, telnet.IAC, telnet.SE)
		Expect(gotData).To(Equal([]byte{0xFF}))
	})

	It("silently drops payload bytes beyond MaxSubnegotiationLength", func() {
		var gotData []byte
		var data bytes.Buffer
		neg := telnet.NewNegotiator(func(byte, byte) {})
		sm := telnet.NewStateMachine(
			func(b byte) { data.WriteByte(b) },
			neg,
			func(byte) {},
			func(option byte, d []byte) { gotData = append([]byte(nil), d...) },
			func() bool { return false },
		)
		sm.Feed(telnet.IAC)
		sm.Feed(telnet.SB)
		sm.Feed(telnet.TType)
		for i := 0; i < telnet.MaxSubnegotiationLength+10; i++ {
			sm.Feed(byte('a' + i%26))
		}
		sm.Feed(telnet.IAC)
		sm.Feed(telnet.SE)
		Expect(gotData).To(HaveLen(telnet.MaxSubnegotiationLength))
	})
})
