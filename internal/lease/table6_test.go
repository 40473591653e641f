package lease

import (
	"net"
	"testing"
	"time"
)

func TestNewTable6(t *testing.T) {
	tbl := NewTable6()
	if tbl.Count() != 0 {
		t.Errorf("Count() = %d, want 0", tbl.Count())
	}
}

func TestTable6PutAndGet(t *testing.T) {
	tbl := NewTable6()

	duid := []byte{0, 3, 0, 1, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	ip := net.ParseIP("2001:db8::100")
	now := time.Now()

	l := &Lease6{
		IP:                ip,
		DUID:              duid,
		IAID:              1,
		Subnet:            "2001:db8::/64",
		Pool:              "2001:db8::100-2001:db8::200",
		State:             StateActive,
		Start:             now,
		ValidLifetime:     8 * time.Hour,
		PreferredLifetime: 4 * time.Hour,
		LastUpdated:       now,
		UpdateSeq:         1,
	}
	tbl.Put(l)

	if tbl.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", tbl.Count())
	}
	if got := tbl.GetByIP(ip); got == nil || !got.IP.Equal(ip) {
		t.Errorf("GetByIP = %v, want lease for %s", got, ip)
	}
	if got := tbl.GetByIA(duid, 1); got == nil || got.IAID != 1 {
		t.Errorf("GetByIA = %v, want IAID 1", got)
	}
	if got := tbl.GetByIA(duid, 2); got != nil {
		t.Errorf("GetByIA(other IAID) = %v, want nil", got)
	}
}

func TestTable6ByDUIDMultipleIAs(t *testing.T) {
	tbl := NewTable6()
	duid := []byte{1, 2, 3, 4}
	now := time.Now()

	tbl.Put(&Lease6{IP: net.ParseIP("2001:db8::1"), DUID: duid, IAID: 1, Start: now, ValidLifetime: time.Hour})
	tbl.Put(&Lease6{IP: net.ParseIP("2001:db8::2"), DUID: duid, IAID: 2, Start: now, ValidLifetime: time.Hour})

	leases := tbl.ByDUID(duid)
	if len(leases) != 2 {
		t.Fatalf("ByDUID = %d leases, want 2", len(leases))
	}
}

func TestTable6PutReplacesOldAddressForSameIA(t *testing.T) {
	tbl := NewTable6()
	duid := []byte{9, 9, 9}
	now := time.Now()

	first := &Lease6{IP: net.ParseIP("2001:db8::1"), DUID: duid, IAID: 1, Start: now, ValidLifetime: time.Hour}
	tbl.Put(first)

	second := &Lease6{IP: net.ParseIP("2001:db8::2"), DUID: duid, IAID: 1, Start: now, ValidLifetime: time.Hour}
	tbl.Put(second)

	if tbl.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 (old address should be unindexed)", tbl.Count())
	}
	if tbl.GetByIP(net.ParseIP("2001:db8::1")) != nil {
		t.Error("old address still indexed after replacement")
	}
	if got := tbl.GetByIA(duid, 1); got == nil || !got.IP.Equal(second.IP) {
		t.Errorf("GetByIA after replace = %v, want %s", got, second.IP)
	}
}

func TestTable6Delete(t *testing.T) {
	tbl := NewTable6()
	duid := []byte{5, 5, 5}
	ip := net.ParseIP("2001:db8::50")
	now := time.Now()

	tbl.Put(&Lease6{IP: ip, DUID: duid, IAID: 7, Start: now, ValidLifetime: time.Hour})
	tbl.Delete(ip)

	if tbl.Count() != 0 {
		t.Errorf("Count() after delete = %d, want 0", tbl.Count())
	}
	if tbl.GetByIA(duid, 7) != nil {
		t.Error("lease still reachable by IA after delete")
	}
}

func TestLease6ExpiryAndRemaining(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := &Lease6{Start: start, ValidLifetime: time.Hour}

	if want := start.Add(time.Hour); !l.Expiry().Equal(want) {
		t.Errorf("Expiry() = %v, want %v", l.Expiry(), want)
	}
	if l.IsExpired(start.Add(30 * time.Minute)) {
		t.Error("lease reported expired before its valid lifetime elapsed")
	}
	if !l.IsExpired(start.Add(2 * time.Hour)) {
		t.Error("lease reported not expired after its valid lifetime elapsed")
	}
	if r := l.Remaining(start.Add(2 * time.Hour)); r != 0 {
		t.Errorf("Remaining() after expiry = %v, want 0", r)
	}
}

func TestLease6Clone(t *testing.T) {
	l := &Lease6{
		IP:   net.ParseIP("2001:db8::1"),
		DUID: []byte{1, 2, 3},
		Options: map[string]string{
			"a": "b",
		},
	}
	c := l.Clone()
	c.Options["a"] = "changed"
	c.DUID[0] = 0xff

	if l.Options["a"] != "b" {
		t.Error("Clone shares the Options map with the original")
	}
	if l.DUID[0] == 0xff {
		t.Error("Clone shares the DUID slice with the original")
	}
}
