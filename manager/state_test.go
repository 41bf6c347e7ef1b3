package manager_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/ovpnctl/manager"
)

var _ = Describe("Parsers", func() {
	Describe("ParseState()", func() {
		It("parses every field", func() {
			state, err := manager.ParseState("1700000000,CONNECTED,SUCCESS,10.8.0.2,203.0.113.5,1194,192.168.1.10,51000,fd00::2")
			Expect(err).To(Succeed())
			Expect(state).To(Equal(manager.StateInfo{
				Time:        time.Unix(1700000000, 0).UTC(),
				State:       "CONNECTED",
				Description: "SUCCESS",
				LocalIP:     "10.8.0.2",
				RemoteIP:    "203.0.113.5",
				RemotePort:  1194,
				LocalAddr:   "192.168.1.10",
				LocalPort:   51000,
				LocalIPv6:   "fd00::2",
			}))
		})

		It("accepts short lines from older peers", func() {
			state, err := manager.ParseState("1700000000,WAIT,")
			Expect(err).To(Succeed())
			Expect(state.State).To(Equal("WAIT"))
			Expect(state.Connected()).To(BeFalse())
		})

		It("rejects garbage", func() {
			_, err := manager.ParseState("CONNECTED")
			Expect(errors.Is(err, manager.ErrMalformedState)).To(BeTrue())

			_, err = manager.ParseState("now,CONNECTED")
			Expect(errors.Is(err, manager.ErrMalformedState)).To(BeTrue())

			_, err = manager.ParseState("1700000000,CONNECTED,SUCCESS,10.8.0.2,203.0.113.5,port,,")
			Expect(errors.Is(err, manager.ErrMalformedState)).To(BeTrue())
		})
	})

	Describe("ParseByteCount()", func() {
		It("parses in and out", func() {
			Expect(manager.ParseByteCount("1024,2048")).To(Equal(manager.ByteCount{BytesIn: 1024, BytesOut: 2048}))
		})

		It("rejects garbage", func() {
			_, err := manager.ParseByteCount("1024")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ParseLog()", func() {
		It("keeps commas in the message", func() {
			entry, err := manager.ParseLog("1700000000,I,peer info: a,b")
			Expect(err).To(Succeed())
			Expect(entry.Flags).To(Equal("I"))
			Expect(entry.Message).To(Equal("peer info: a,b"))
		})
	})
})
