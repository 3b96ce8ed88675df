package tftp

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Server.resolve", func() {
	It("rejects names that escape the configured root", func() {
		s := NewServer("/srv/tftp", ReadWrite)

		for _, name := range []string{
			"../../etc/passwd",
			"/etc/passwd",
			"a/../../b",
		} {
			_, err := s.resolve(name)
			Expect(err).To(HaveOccurred(), "resolve(%q) should be rejected", name)
		}
	})

	It("allows a nested path under the root", func() {
		s := NewServer("/srv/tftp", ReadWrite)
		got, err := s.resolve("images/boot.img")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal("/srv/tftp/images/boot.img"))
	})
})
