package tftp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GiacomoTortora/commons-net/internal/tftp"
)

var _ = Describe("Packet marshaling", func() {
	It("round-trips a request packet", func() {
		p := &tftp.RequestPacket{Opcode: tftp.OpRRQ, Filename: "boot.img", Mode: tftp.ModeOctet}
		raw := tftp.MarshalRequest(p)
		got, err := tftp.Unmarshal(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Opcode).To(Equal(tftp.OpRRQ))
		Expect(got.Request.Filename).To(Equal("boot.img"))
		Expect(got.Request.Mode).To(Equal(tftp.ModeOctet))
	})

	It("round-trips a data packet", func() {
		p := &tftp.DataPacket{Block: 7, Data: []byte("payload")}
		raw := tftp.MarshalData(p)
		got, err := tftp.Unmarshal(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Data.Block).To(Equal(uint16(7)))
		Expect(string(got.Data.Data)).To(Equal("payload"))
	})

	It("round-trips an ack packet", func() {
		raw := tftp.MarshalAck(&tftp.AckPacket{Block: 65535})
		got, err := tftp.Unmarshal(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Ack.Block).To(Equal(uint16(65535)))
	})

	It("round-trips an error packet", func() {
		raw := tftp.MarshalError(&tftp.ErrorPacket{Code: tftp.ErrFileNotFound, Message: "nope"})
		got, err := tftp.Unmarshal(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Error.Code).To(Equal(tftp.ErrFileNotFound))
		Expect(got.Error.Message).To(Equal("nope"))
	})

	It("rejects a packet too short to carry an opcode", func() {
		_, err := tftp.Unmarshal([]byte{0})
		Expect(err).To(HaveOccurred())
	})

	It("rejects a truncated DATA packet", func() {
		raw := tftp.MarshalData(&tftp.DataPacket{Block: 1})
		_, err := tftp.Unmarshal(raw[:3])
		Expect(err).To(HaveOccurred())
	})

	It("rejects an unknown opcode", func() {
		_, err := tftp.Unmarshal([]byte{0, 9, 0, 0})
		Expect(err).To(HaveOccurred())
	})

	// documents the RFC 1350 block-number rollover the client and server
	// rely on: block numbers are 16-bit and wrap from 65535 back to 0,
	// which Go's uint16 arithmetic does for free.
	It("wraps a uint16 block number from 65535 back to 0", func() {
		var block uint16 = 65535
		block++
		Expect(block).To(Equal(uint16(0)))
	})
})
