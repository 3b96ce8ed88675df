package mlsx_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GiacomoTortora/commons-net/internal/mlsx"
	"github.com/GiacomoTortora/commons-net/internal/neterr"
)

var _ = Describe("ParseEntry", func() {
	It("parses a full fact list for a file", func() {
		e, err := mlsx.ParseEntry("Size=1024;Modify=20231015143000;Type=file;UNIX.owner=1000;UNIX.group=1000;UNIX.mode=0644; report.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Name).To(Equal("report.txt"))
		Expect(e.HasSize).To(BeTrue())
		Expect(e.Size).To(Equal(int64(1024)))
		Expect(e.Type).To(Equal(mlsx.TypeFile))
		Expect(e.User).To(Equal("1000"))
		Expect(e.Group).To(Equal("1000"))

		want := time.Date(2023, 10, 15, 14, 30, 0, 0, time.UTC)
		Expect(e.HasModify).To(BeTrue())
		Expect(e.Modified.Equal(want)).To(BeTrue())

		// mode 0644 -> owner rw, group r, world r
		Expect(e.Permission(mlsx.UserAccess, mlsx.ReadPermission)).To(BeTrue())
		Expect(e.Permission(mlsx.UserAccess, mlsx.WritePermission)).To(BeTrue())
		Expect(e.Permission(mlsx.UserAccess, mlsx.ExecutePermission)).To(BeFalse())
		Expect(e.Permission(mlsx.GroupAccess, mlsx.ReadPermission)).To(BeTrue())
		Expect(e.Permission(mlsx.GroupAccess, mlsx.WritePermission)).To(BeFalse())
		Expect(e.Permission(mlsx.WorldAccess, mlsx.ReadPermission)).To(BeTrue())
		Expect(e.Permission(mlsx.WorldAccess, mlsx.WritePermission)).To(BeFalse())
	})

	DescribeTable("collapses every directory fact value to TypeDir",
		func(factValue string) {
			e, err := mlsx.ParseEntry("Type=" + factValue + "; listing")
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Type).To(Equal(mlsx.TypeDir))
		},
		Entry("dir", "dir"),
		Entry("pdir", "pdir"),
		Entry("cdir", "cdir"),
	)

	It("strips the MLST leading-space marker, not the pathname", func() {
		e, err := mlsx.ParseEntry(" /pub/file.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Name).To(Equal("/pub/file.txt"))
	})

	It("rejects a lone leading space with no pathname", func() {
		_, err := mlsx.ParseEntry(" ")
		Expect(err).To(HaveOccurred())
	})

	It("rejects a fact list with no pathname", func() {
		_, err := mlsx.ParseEntry("Size=1024;")
		Expect(err).To(HaveOccurred())
	})

	It("rejects a fact list not terminated with ';'", func() {
		_, err := mlsx.ParseEntry("Size=1024 file.txt")
		Expect(err).To(HaveOccurred())
	})

	It("rejects a fact with no '=' sign", func() {
		_, err := mlsx.ParseEntry("Size1024; file.txt")
		Expect(err).To(HaveOccurred())
	})

	It("rejects a non-numeric size", func() {
		_, err := mlsx.ParseEntry("Size=notanumber; file.txt")
		Expect(err).To(HaveOccurred())
	})

	It("falls back to the Perm fact when no UNIX.mode fact is present", func() {
		e, err := mlsx.ParseEntry("Type=file;Perm=rel; file.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Permission(mlsx.UserAccess, mlsx.ReadPermission)).To(BeTrue())
		Expect(e.Permission(mlsx.UserAccess, mlsx.ExecutePermission)).To(BeTrue())
	})

	It("ignores the Perm fact entirely once UNIX.mode is present", func() {
		e, err := mlsx.ParseEntry("UNIX.mode=0400;Perm=adfrw; file.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Permission(mlsx.UserAccess, mlsx.WritePermission)).To(BeFalse())
		Expect(e.Permission(mlsx.UserAccess, mlsx.ReadPermission)).To(BeTrue())
	})
})

var _ = Describe("ParseGMTDateTime", func() {
	It("parses a timestamp with a fractional-second suffix", func() {
		got, err := mlsx.ParseGMTDateTime("20231015143000.500")
		Expect(err).NotTo(HaveOccurred())
		want := time.Date(2023, 10, 15, 14, 30, 0, 500_000_000, time.UTC)
		Expect(got.Equal(want)).To(BeTrue())
	})

	It("rejects trailing garbage after a full match", func() {
		_, err := mlsx.ParseGMTDateTime("20231015143000trailing")
		Expect(err).To(HaveOccurred())
		Expect(neterr.Is(err, neterr.Protocol)).To(BeTrue())
	})
})
