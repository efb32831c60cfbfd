package events_test

import (
	"testing"

	"github.com/zimcoin/ledger/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Events(t *testing.T) {
	t.Log("Given the need to fan out chain events to websocket clients.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen two receivers are registered.", testID)
		{
			evts := events.New()

			ch1 := evts.Acquire("a")
			ch2 := evts.Acquire("b")

			if evts.Acquire("a") != ch1 || evts.Count() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould reuse the channel for the same id.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reuse the channel for the same id.", success, testID)

			evts.Send("viewer: block: 1")

			for _, ch := range []chan string{ch1, ch2} {
				if msg := <-ch; msg != "viewer: block: 1" {
					t.Fatalf("\t%s\tTest %d:\tShould receive the event, got %q.", failed, testID, msg)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould receive the event on every channel.", success, testID)

			if err := evts.Release("a"); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould release the channel: %v", failed, testID, err)
			}
			if _, open := <-ch1; open {
				t.Fatalf("\t%s\tTest %d:\tShould close a released channel.", failed, testID)
			}
			if err := evts.Release("a"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould fail to release an unknown id.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould release the channel once.", success, testID)

			evts.Shutdown()
			if _, open := <-ch2; open || evts.Count() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould close every channel on shutdown.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould close every channel on shutdown.", success, testID)
		}
	}
}
