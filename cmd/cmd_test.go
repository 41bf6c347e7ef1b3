package cmd

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/luma/ovpnctl/client"
)

// serveOnce accepts one connection and answers each command it reads from
// replies. The banner openvpn sends on connect goes out first.
func serveOnce(replies map[string][]string) (string, <-chan []string) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).To(Succeed())

	received := make(chan []string, 1)

	go func() {
		defer GinkgoRecover()
		defer listener.Close()

		conn, err := listener.Accept()
		if err != nil {
			received <- nil
			return
		}

		defer conn.Close()

		_, _ = conn.Write([]byte(">INFO:OpenVPN Management Interface Version 5 -- type 'help' for more info\r\n"))

		var commands []string
		defer func() { received <- commands }()

		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}

			command := strings.TrimRight(line, "\r\n")
			commands = append(commands, command)

			for _, reply := range replies[command] {
				_, _ = conn.Write([]byte(reply + "\r\n"))
			}
		}
	}()

	return listener.Addr().String(), received
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer

	RootCmd.SetOut(&out)
	RootCmd.SetErr(&bytes.Buffer{})
	RootCmd.SetArgs(args)

	err := RootCmd.Execute()

	return out.String(), err
}

var _ = Describe("cmd", func() {
	Describe("ovpnctl pid", func() {
		It("prints the pid", func() {
			addr, received := serveOnce(map[string][]string{
				"pid": {"SUCCESS: pid=4242"},
			})

			out, err := execute("--addr", addr, "--log-level", "error", "pid")
			Expect(err).To(Succeed())
			Expect(out).To(Equal("4242\n"))
			Eventually(received).Should(Receive(Equal([]string{"pid"})))
		})
	})

	Describe("ovpnctl state", func() {
		It("prints name=value lines when not on a terminal", func() {
			addr, _ := serveOnce(map[string][]string{
				"state": {"1700000000,CONNECTED,SUCCESS,10.8.0.2,203.0.113.5,1194,,", "END"},
			})

			out, err := execute("--addr", addr, "--log-level", "error", "state")
			Expect(err).To(Succeed())
			Expect(out).To(HavePrefix("state=CONNECTED\ndescription=SUCCESS\n"))
			Expect(out).To(ContainSubstring("local_ip=10.8.0.2\n"))
			Expect(out).To(HaveSuffix("remote_ip=203.0.113.5\nremote_port=1194\n"))
		})
	})

	Describe("renderFields()", func() {
		It("renders every field", func() {
			out := renderFields([][2]string{{"state", "CONNECTED"}, {"remote_port", "1194"}})
			Expect(out).To(ContainSubstring("CONNECTED"))
			Expect(out).To(ContainSubstring("remote_port"))
			Expect(strings.Count(out, "\n")).To(BeNumerically(">=", 3))
		})
	})

	Describe("ovpnctl send", func() {
		It("prints multi-line replies", func() {
			addr, _ := serveOnce(map[string][]string{
				"status 2": {"TITLE,OpenVPN 2.6.8", "TIME,2024-01-02 03:04:05,1704164645", "END"},
			})

			out, err := execute("--addr", addr, "--log-level", "error", "send", "status", "2")
			Expect(err).To(Succeed())
			Expect(out).To(Equal("TITLE,OpenVPN 2.6.8\nTIME,2024-01-02 03:04:05,1704164645\n"))
		})

		It("fails on error replies", func() {
			addr, _ := serveOnce(map[string][]string{
				"bogus": {"ERROR: unknown command, enter 'help' for more options"},
			})

			_, err := execute("--addr", addr, "--log-level", "error", "send", "bogus")
			Expect(client.IsProtocolError(err)).To(BeTrue())
		})
	})

	Describe("ovpnctl signal", func() {
		It("rejects unknown signals before connecting", func() {
			_, err := execute("--addr", "127.0.0.1:1", "signal", "SIGKILL")
			Expect(err).To(MatchError(ContainSubstring("Unsupported signal")))
		})
	})

	Describe("renderNotification()", func() {
		receivedAt := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

		n := client.Notification{
			Category:   "CLIENT",
			Payload:    "CONNECT,0,1",
			Extra:      []string{"common_name=alice", "untrusted_ip=198.51.100.7"},
			Raw:        ">CLIENT:CONNECT,0,1",
			ReceivedAt: receivedAt,
		}

		It("prints the raw lines", func() {
			Expect(renderNotification(n, false)).To(Equal(">CLIENT:CONNECT,0,1\n\tcommon_name=alice\n\tuntrusted_ip=198.51.100.7"))
		})

		It("renders a JSON line", func() {
			out, err := renderNotification(n, true)
			Expect(err).To(Succeed())
			Expect(out).NotTo(ContainSubstring("\n"))
			Expect(gjson.Get(out, "category").String()).To(Equal("CLIENT"))
			Expect(gjson.Get(out, "payload").String()).To(Equal("CONNECT,0,1"))
			Expect(gjson.Get(out, "extra.1").String()).To(Equal("untrusted_ip=198.51.100.7"))
			Expect(gjson.Get(out, "receivedAt").Time()).To(BeTemporally("==", receivedAt))
		})

		It("leaves out extra when there is none", func() {
			out, err := renderNotification(client.Notification{Category: "HOLD", Payload: "Waiting for hold release:0"}, true)
			Expect(err).To(Succeed())
			Expect(gjson.Get(out, "extra").Exists()).To(BeFalse())
		})
	})

	Describe("renderReply()", func() {
		It("renders the lines of the body", func() {
			out, err := renderReply(client.ReceiveInfo{
				Command: "help",
				Status:  client.StatusSuccess,
				Body:    "a\nb",
			})
			Expect(err).To(Succeed())
			Expect(gjson.Get(out, "status").String()).To(Equal("SUCCESS"))
			Expect(gjson.Get(out, "lines.#").Int()).To(Equal(int64(2)))
		})
	})

	Describe("watchCommands()", func() {
		AfterEach(func() {
			watchByteCount, watchLog, watchState = 0, false, false
		})

		It("turns on what was asked for", func() {
			watchByteCount, watchState = 5, true
			Expect(watchCommands()).To(Equal([]string{"bytecount 5", "state on"}))
		})
	})
})
