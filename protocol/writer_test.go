package protocol_test

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/ovpnctl/protocol"
)

var _ = Describe("Parsing/ Writer", func() {
	Describe("WriteCommand", func() {
		It("ends in \\n", func() {
			w := bytes.NewBuffer([]byte{})

			Expect(protocol.WriteCommand(w, "state")).To(Succeed())
			Expect(w.String()).To(Equal("state\n"))
		})

		It("rejects commands spanning several lines", func() {
			w := bytes.NewBuffer([]byte{})

			err := protocol.WriteCommand(w, "state\nsignal SIGTERM")
			Expect(errors.Is(err, protocol.ErrInvalidCommand)).To(BeTrue())
			Expect(w.Len()).To(BeZero())

			err = protocol.WriteCommand(w, "state\r")
			Expect(errors.Is(err, protocol.ErrInvalidCommand)).To(BeTrue())
		})

		It("rejects empty commands", func() {
			w := bytes.NewBuffer([]byte{})

			err := protocol.WriteCommand(w, "  ")
			Expect(errors.Is(err, protocol.ErrInvalidCommand)).To(BeTrue())
		})
	})

	Describe("Escape", func() {
		It("leaves plain arguments alone", func() {
			Expect(protocol.Escape("alice")).To(Equal("alice"))
		})

		It("quotes empty arguments", func() {
			Expect(protocol.Escape("")).To(Equal(`""`))
		})

		It("quotes arguments with whitespace", func() {
			Expect(protocol.Escape("my password")).To(Equal(`"my password"`))
		})

		It("escapes backslashes and double quotes", func() {
			Expect(protocol.Escape(`a"b\c`)).To(Equal(`"a\"b\\c"`))
		})
	})

	Describe("Join", func() {
		It("joins a command name with escaped arguments", func() {
			Expect(protocol.Join("username", "Auth", "my user")).To(Equal(`username Auth "my user"`))
		})

		It("returns the bare name without arguments", func() {
			Expect(protocol.Join("help")).To(Equal("help"))
		})
	})
})
