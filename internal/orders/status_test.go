package orders

import "testing"

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusPending, StatusAccepted},
		{StatusPending, StatusCancelled},
		{StatusAccepted, StatusDelivered},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}

	all := []Status{StatusPending, StatusAccepted, StatusDelivered, StatusCancelled}
	isLegal := func(from, to Status) bool {
		for _, tc := range legal {
			if tc.from == from && tc.to == to {
				return true
			}
		}
		return false
	}
	for _, from := range all {
		for _, to := range all {
			if CanTransition(from, to) && !isLegal(from, to) {
				t.Errorf("unexpected legal transition %s -> %s", from, to)
			}
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusAccepted.Terminal() {
		t.Error("PENDING and ACCEPTED must not be terminal")
	}
	if !StatusDelivered.Terminal() || !StatusCancelled.Terminal() {
		t.Error("DELIVERED and CANCELLED must be terminal")
	}
	if Status("BOGUS").Terminal() || Status("BOGUS").Valid() {
		t.Error("unknown status must be neither terminal nor valid")
	}
}

func TestCheckTransition(t *testing.T) {
	if err := CheckTransition(StatusPending, StatusAccepted, "courier-1"); err != nil {
		t.Errorf("claim transition rejected: %v", err)
	}
	if err := CheckTransition(StatusPending, StatusAccepted, ""); err == nil {
		t.Error("claim without courier id must be rejected")
	}
	if err := CheckTransition(StatusAccepted, StatusDelivered, "courier-1"); err == nil {
		t.Error("courier id outside a claim must be rejected")
	}
	if err := CheckTransition(StatusDelivered, StatusPending, ""); err == nil {
		t.Error("backwards transition must be rejected")
	}
}
