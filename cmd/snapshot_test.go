package cmd

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/luma/ovpnctl/client"
	"github.com/luma/ovpnctl/storage"
)

var _ = Describe("serve helpers", func() {
	var (
		dir   string
		store *storage.InmemoryStore
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "ovpnctl-snapshot")
		Expect(err).To(Succeed())

		store = storage.NewInmemoryStore(nil)
	})

	AfterEach(func() {
		store.Close()
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	Describe("saveSnapshot() / restoreSnapshot()", func() {
		It("carries the latest notifications over to a new store", func() {
			path := filepath.Join(dir, "snapshot.json")

			store.OnNotification(client.Notification{Category: "STATE", Payload: "1700000000,CONNECTED,SUCCESS,,,,,", Raw: ">STATE:1700000000,CONNECTED,SUCCESS,,,,,"})
			Expect(saveSnapshot(store, path)).To(Succeed())

			restoredStore := storage.NewInmemoryStore(nil)
			defer restoredStore.Close()

			Expect(restoreSnapshot(restoredStore, path)).To(BeTrue())

			record, ok := restoredStore.Record("STATE")
			Expect(ok).To(BeTrue())
			Expect(record.Payload).To(Equal("1700000000,CONNECTED,SUCCESS,,,,,"))

			entries, err := os.ReadDir(dir)
			Expect(err).To(Succeed())
			Expect(entries).To(HaveLen(1))
		})

		It("starts empty when there is no snapshot yet", func() {
			Expect(restoreSnapshot(store, filepath.Join(dir, "missing.json"))).To(BeFalse())

			values, err := store.Backup()
			Expect(err).To(Succeed())
			Expect(string(values)).To(Equal(`{}`))
		})

		It("refuses a corrupt snapshot", func() {
			path := filepath.Join(dir, "snapshot.json")
			Expect(os.WriteFile(path, []byte(`{"STATE":`), 0600)).To(Succeed())

			_, err := restoreSnapshot(store, path)
			Expect(err).To(MatchError(ContainSubstring(storage.ErrInvalidJSON.Error())))
		})
	})

	Describe("logUpdates()", func() {
		It("sees updates made right after the listener is registered", func() {
			core, logs := observer.New(zap.DebugLevel)

			updates := store.ListenToUpdates()
			Expect(store.Set(context.Background(), "HOLD", "Waiting for hold release:0")).To(Succeed())

			go logUpdates(updates, zap.New(core))

			Eventually(func() int {
				return logs.FilterMessage("Notification recorded").Len()
			}).Should(Equal(1))
			Expect(logs.All()[0].ContextMap()).To(HaveKeyWithValue("category", "HOLD"))
		})
	})
})
