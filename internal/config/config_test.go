package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GiacomoTortora/commons-net/internal/config"
)

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	return path
}

var _ = Describe("Load", func() {
	It("parses TFTP, Telnet and NTP sections", func() {
		dir := GinkgoT().TempDir()
		path := writeFile(dir, "config.yml", `
hotReload: true
tftp:
  listenAddr: ":6969"
  root: /srv/tftp
  mode: GET_ONLY
telnet:
  listenAddr: ":2323"
  volunteerOptions: [SGA]
ntp:
  server: pool.ntp.org
  timeout: 5s
`)

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.HotReload).To(BeTrue())
		Expect(cfg.TFTP.Root).To(Equal("/srv/tftp"))
		Expect(cfg.TFTP.Mode).To(Equal("GET_ONLY"))
		Expect(cfg.Telnet.ListenAddr).To(Equal(":2323"))
		Expect(cfg.Telnet.VolunteerOptions).To(HaveLen(1))
		Expect(cfg.NTP.Server).To(Equal("pool.ntp.org"))
	})

	It("follows includes, layering the root file's fields over them", func() {
		dir := GinkgoT().TempDir()
		writeFile(dir, "base.yml", `
tftp:
  root: /base/root
`)
		path := writeFile(dir, "config.yml", `
include: [base.yml]
tftp:
  mode: PUT_ONLY
`)

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.TFTP.Root).To(Equal("/base/root"))
		Expect(cfg.TFTP.Mode).To(Equal("PUT_ONLY"))
		Expect(cfg.LoadedFiles).To(HaveLen(2))
	})
})
