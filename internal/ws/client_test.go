package ws

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

// trySend races against close from the hub loop in production; neither
// ordering may panic or deliver on a closed channel.
func TestTrySendDuringCloseDoesNotPanic(t *testing.T) {
	for i := 0; i < 50; i++ {
		c := newTestClient(nil, uuid.Nil, "alice")

		var wg sync.WaitGroup
		for s := 0; s < 4; s++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 500; j++ {
					c.trySend([]byte("frame"))
				}
			}()
		}
		c.close()
		wg.Wait()
	}
}

func TestTrySendAfterCloseIsDropped(t *testing.T) {
	c := newTestClient(nil, uuid.Nil, "alice")
	c.close()
	c.trySend([]byte("frame"))

	if _, ok := <-c.Send; ok {
		t.Fatal("expected closed empty channel")
	}
}
